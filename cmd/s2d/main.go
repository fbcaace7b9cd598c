// s2d: space-to-depth permutation oracle
package main

import (
	"flag"
	"fmt"
	"os"

	"s2d_lib/core/ckkswrapper"
	"s2d_lib/nn/bench"
	"s2d_lib/nn/layers"
	"s2d_lib/oracle"
	"s2d_lib/tensor"
	"s2d_lib/utils"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

var (
	configFile = flag.String("config", "", "YAML scenario file")
	shape      = flag.String("shape", "", "Single scenario as \"H W C\" (overrides -config)")
	blockSize  = flag.Int("block", utils.DefaultBlockSize, "Block size for -shape")
	encrypted  = flag.Bool("encrypted", false, "Run the transform on CKKS ciphertexts")
	splitWire  = flag.Bool("split", false, "With -encrypted, serve the layer behind the split protocol")
	logN       = flag.Int("logN", utils.DefaultLogN, "Ring dimension log2")
	verbose    = flag.Bool("verbose", true, "Verbose output")
	dumpFile   = flag.String("dump", "", "Write input and output tensors to this JSON file")
	benchRuns  = flag.Int("bench", 0, "Also time the layer over this many runs per scenario")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	utils.Verbose = cfg.Verbose

	if utils.Verbose {
		fmt.Println("╔══════════════════════════════════════════════════════════════╗")
		fmt.Println("║              Space-to-Depth Permutation Oracle               ║")
		fmt.Println("╚══════════════════════════════════════════════════════════════╝")
		fmt.Printf("Scenarios: %d, Encrypted: %v, LogN: %d\n", len(cfg.Scenarios), cfg.Encrypted, cfg.LogN)
	}

	opts := oracle.Options{Encrypted: cfg.Encrypted, LogN: cfg.LogN, Split: cfg.Split}
	if cfg.Encrypted {
		// keys are shared by every scenario; rotation keys are per scenario
		opts.HeContext = ckkswrapper.NewHeContextWithLogN(cfg.LogN)
	}

	dump := utils.NewTensorDump()
	failed := 0
	for _, sc := range cfg.Scenarios {
		rep, err := oracle.Run(oracle.FromConfig(sc), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Scenario %s: %v\n", sc.Name, err)
			os.Exit(1)
		}
		oracle.Print(rep)
		utils.PrintTimingStats(&rep.Stats)
		if !rep.OK() {
			failed++
		}
		dump.Add(sc.Name+"/input", rep.Input)
		dump.Add(sc.Name+"/output", rep.Output)

		if *benchRuns > 0 {
			points, err := runBench(oracle.FromConfig(sc), rep.Input, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Benchmark %s: %v\n", sc.Name, err)
				os.Exit(1)
			}
			bench.PrintPoints(sc.Name, points)
		}
	}

	if cfg.DumpPath != "" {
		if err := utils.SaveTensors(cfg.DumpPath, dump); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing dump: %v\n", err)
			os.Exit(1)
		}
		if utils.Verbose {
			fmt.Printf("\nTensors written to %s\n", cfg.DumpPath)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d scenarios failed\n", failed, len(cfg.Scenarios))
		os.Exit(1)
	}
}

// loadConfig merges the config file, if any, with the command line. Flags
// the user set explicitly win over the file.
func loadConfig() (*utils.Config, error) {
	cfg := utils.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = utils.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *shape != "" {
		sc, err := utils.ParseShape(*shape, *blockSize)
		if err != nil {
			return nil, err
		}
		cfg.Scenarios = []utils.ScenarioConfig{sc}
	} else if set["block"] {
		for i := range cfg.Scenarios {
			cfg.Scenarios[i].BlockSize = *blockSize
		}
	}
	if set["encrypted"] {
		cfg.Encrypted = *encrypted
	}
	if set["split"] {
		cfg.Split = *splitWire
	}
	if set["logN"] {
		cfg.LogN = *logN
	}
	if set["verbose"] {
		cfg.Verbose = *verbose
	}
	if set["dump"] {
		cfg.DumpPath = *dumpFile
	}

	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runBench times the plaintext layer and, in encrypted mode, the HE layer on
// the scenario's channel planes.
func runBench(sc oracle.Scenario, in *tensor.Tensor, opts oracle.Options) ([]bench.Point, error) {
	plain := layers.NewSpaceToDepth(sc.BlockSize, false, nil)
	p, err := bench.TimeLayerPlain(plain, plain.Tag(), in, *benchRuns)
	if err != nil {
		return nil, err
	}
	points := []bench.Point{p}
	if !opts.Encrypted {
		return points, nil
	}

	layer := layers.NewSpaceToDepth(sc.BlockSize, true, opts.HeContext)
	if err := layer.SetDimensions(sc.Height, sc.Width); err != nil {
		return nil, err
	}
	cts := make([]*rlwe.Ciphertext, sc.Channels)
	for ch := range cts {
		plane := make([]float64, sc.Height*sc.Width)
		for i := range plane {
			plane[i] = in.At(0, i/sc.Width, i%sc.Width, ch)
		}
		if cts[ch], err = opts.HeContext.EncryptVector(plane); err != nil {
			return nil, err
		}
	}
	p, err = bench.TimeLayer(layer, cts, *benchRuns)
	if err != nil {
		return nil, err
	}
	return append(points, p), nil
}
