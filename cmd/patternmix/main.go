package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/cbegin/patternmix-go"
	intcfg "github.com/cbegin/patternmix-go/internal/config"
)

func main() {
	var (
		patternPath = flag.String("pattern", "sound_pattern.csv", "path to the pattern CSV")
		configPath  = flag.String("config", "", "optional YAML config file")
		outPath     = flag.String("out", "new_music.wav", "output WAV path")
		bpm         = flag.Float64("bpm", 0, "tempo override (beats per minute)")
		beats       = flag.Int("beats", 0, "beats per bar override")
		repeat      = flag.Int("repeat", -1, "loop count override")
		sampleRate  = flag.Int("sample-rate", 0, "render sample rate override")
		assetDir    = flag.String("assets", "", "instrument asset directory override")
		play        = flag.Bool("play", false, "play the soundtrack after exporting")
		list        = flag.Bool("instruments", false, "list configured instruments and exit")
	)
	flag.Parse()

	cfg, err := intcfg.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(&cfg, *bpm, *beats, *repeat, *sampleRate, *assetDir)

	if *list {
		for _, id := range cfg.Instruments.IDs() {
			fmt.Printf("%s\t%s\n", id, cfg.Instruments[id])
		}
		return
	}

	maker, err := patternmix.NewMaker(cfg)
	if err != nil {
		log.Fatal(err)
	}
	res, err := maker.RenderFile(*patternPath)
	if err != nil {
		log.Fatal(err)
	}
	for _, rej := range res.Rejected {
		log.Printf("check the pattern of row %d: %v", patternmix.RejectedRow(rej), rej)
	}
	if err := patternmix.WriteWAVFile(*outPath, res.Buffer); err != nil {
		log.Fatal(err)
	}
	log.Printf("exported a soundtrack with the length of %.0fms to %s", res.DurationMs(), *outPath)

	if *play {
		if err := patternmix.Play(res.Buffer); err != nil {
			log.Fatal(err)
		}
	}
}

func applyFlags(cfg *intcfg.Config, bpm float64, beats, repeat, sampleRate int, assetDir string) {
	if bpm > 0 {
		cfg.BPM = bpm
	}
	if beats > 0 {
		cfg.TimeSignatureBeats = beats
	}
	if repeat >= 0 {
		cfg.RepeatCount = repeat
	}
	if sampleRate > 0 {
		cfg.SampleRate = sampleRate
	}
	if strings.TrimSpace(assetDir) != "" {
		cfg.AssetDir = assetDir
	}
}
