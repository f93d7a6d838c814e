package pattern

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Parser struct{ cfg ParserConfig }

func NewParser(cfg ParserConfig) *Parser {
	if cfg.Comma == 0 {
		cfg.Comma = ','
	}
	return &Parser{cfg: cfg}
}

// Parse reads rows of the form instrument,volume,note1,...,noteN. Rows that
// fail validation are returned in rejected and do not stop the batch; err is
// set only when the input itself cannot be read. A row's index is its
// zero-based line in the input, so blank and comment lines keep their place
// in the numbering without producing rows.
func (p *Parser) Parse(r io.Reader) (rows []Row, rejected []error, err error) {
	cr := csv.NewReader(r)
	cr.Comma = p.cfg.Comma
	cr.Comment = p.cfg.Comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for {
		record, e := cr.Read()
		if errors.Is(e, io.EOF) {
			break
		}
		if e != nil {
			return nil, nil, fmt.Errorf("read pattern: %w", e)
		}
		line, _ := cr.FieldPos(0)
		row, e := parseRecord(line-1, record)
		if e != nil {
			rejected = append(rejected, e)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

// ParseString is a convenience wrapper for inline patterns.
func (p *Parser) ParseString(input string) ([]Row, []error, error) {
	return p.Parse(strings.NewReader(input))
}

func parseRecord(index int, record []string) (Row, error) {
	cells := make([]string, 0, len(record))
	for _, c := range record {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) < 2 {
		return Row{}, &MalformedPatternError{Row: index, Reason: "missing instrument or volume"}
	}
	notes := make([]NoteDuration, 0, len(cells)-2)
	for _, c := range cells[2:] {
		n, err := strconv.Atoi(c)
		if err != nil {
			return Row{}, &MalformedPatternError{Row: index, Reason: fmt.Sprintf("note %q is not an integer", c)}
		}
		notes = append(notes, NoteDuration(n))
	}
	if err := Validate(notes); err != nil {
		return Row{}, &MalformedPatternError{Row: index, Reason: err.Error()}
	}
	tier, err := strconv.Atoi(cells[1])
	if err != nil || !VolumeTier(tier).Valid() {
		return Row{}, &UnresolvableVolumeTierError{Row: index, Tier: cells[1]}
	}
	return Row{
		Index:      index,
		Instrument: cells[0],
		Volume:     VolumeTier(tier),
		Notes:      notes,
	}, nil
}
