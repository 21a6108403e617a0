package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"miraseg/pkg/config"
	"miraseg/pkg/costmap"
	"miraseg/pkg/grid"
	"miraseg/pkg/regiongrow"
	"miraseg/pkg/visualization"
)

func main() {
	volumePath := flag.String("volume", "", "Raw little-endian float32 volume file")
	dims := flag.String("dims", "", "Volume dimensions as nx,ny,nz")
	seedArg := flag.String("seed", "", "Seed voxel as x,y,z")
	mode := flag.String("mode", "grow", "Segmentation mode: grow (3-D region growth) or slice (2-D cost-distance map)")
	slider := flag.Float64("slider", 0.5, "Distance threshold slider in [0,1] (slice mode)")
	bandMin := flag.Float64("min", 0.5, "Lower bound of the intensity band")
	bandMax := flag.Float64("max", 1.0, "Upper bound of the intensity band")
	roiArg := flag.String("roi", "", "ROI box as x0,y0,z0:x1,y1,z1 (optional)")
	roiMode := flag.String("roi-mode", "guide", "ROI mode: hard or guide")
	roiScale := flag.Float64("roi-scale", 1.0, "Outside-ROI tolerance scale in [0,1] (guide mode)")
	guided := flag.Bool("guided", true, "Use the guided cost-distance grower")
	configPath := flag.String("config", "miraseg.yaml", "YAML configuration file")
	outputDir := flag.String("out", "miraseg_out", "Directory for mask slice output")
	saveSlices := flag.Bool("save-slices", false, "Write per-axis mask overlay slices")
	debug := flag.Bool("debug", false, "Enable solver progress logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if *debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if *volumePath == "" || *dims == "" || *seedArg == "" {
		flag.Usage()
		os.Exit(1)
	}

	nx, ny, nz, err := parseTriple(*dims)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -dims")
	}
	sx, sy, sz, err := parseTriple(*seedArg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -seed")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	vol, err := grid.ReadVolume(*volumePath, nx, ny, nz)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load volume")
	}
	logger.Info().
		Int("nx", nx).Int("ny", ny).Int("nz", nz).
		Msg("volume loaded")

	var roi *grid.ROI
	if *roiArg != "" {
		box, err := parseBox(*roiArg)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -roi")
		}
		mode := grid.ROIGuide
		if *roiMode == "hard" {
			mode = grid.ROIHard
		} else if *roiMode != "guide" {
			logger.Fatal().Str("mode", *roiMode).Msg("invalid -roi-mode")
		}
		roi = &grid.ROI{Box: box, Mode: mode, OutsideToleranceScale: *roiScale}
	}

	// Interrupt cancels the solve at its next poll point.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	seed := grid.Point3{X: sx, Y: sy, Z: sz}

	switch *mode {
	case "slice":
		runSlice(ctx, logger, cfg, vol, seed, roi, *slider, *outputDir,
			*saveSlices || cfg.Output.SaveMaskSlices, *debug)
		return
	case "grow":
	default:
		logger.Fatal().Str("mode", *mode).Msg("invalid -mode")
	}

	opts := &regiongrow.Options{
		MaxVoxels:    cfg.Grow.MaxVoxels,
		MaxCost:      cfg.Grow.MaxCost,
		Connectivity: cfg.Grow.Connectivity,
		Weights:      &cfg.Grow.Weights,
		Tuning:       &cfg.Grow.Tuning,
		Debug:        *debug,
		Logger:       &logger,
	}

	start := time.Now()

	var res *regiongrow.Result
	if *guided {
		res, err = regiongrow.GrowGuided(ctx, vol, seed, float32(*bandMin), float32(*bandMax), roi, opts)
	} else {
		var box *grid.Box
		if roi != nil {
			box = &roi.Box
		}
		res, err = regiongrow.Grow(ctx, vol, seed, float32(*bandMin), float32(*bandMax), box, opts)
	}
	if err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("segmentation cancelled")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("segmentation failed")
	}
	elapsed := time.Since(start)

	fmt.Printf("Included voxels: %d\n", res.Count)
	fmt.Printf("Seed value: %.4f\n", res.SeedValue)
	fmt.Printf("Hit voxel cap: %v\n", res.HitMaxVoxels)
	fmt.Printf("Elapsed: %.2fs\n", elapsed.Seconds())

	if *saveSlices || cfg.Output.SaveMaskSlices {
		viewer := visualization.NewViewer(vol)
		viewer.SetMask(res.Indices)

		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*outputDir, axis)
			logger.Info().Str("axis", axis).Str("dir", axisDir).Msg("saving mask slices")
			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				logger.Warn().Err(err).Str("axis", axis).Msg("failed to save slices")
			}
		}
	}
}

// runSlice computes the 2-D cost-distance map over the seed's z slice with
// the configured cost-map parameters, and reports the pixel count selected
// by the requested slider position.
func runSlice(ctx context.Context, logger zerolog.Logger, cfg *config.Config, vol *grid.Volume,
	seed grid.Point3, roi *grid.ROI, slider float64, outputDir string, save bool, debug bool) {

	if seed.Z < 0 || seed.Z >= vol.NZ {
		logger.Fatal().Int("z", seed.Z).Msg("seed slice out of range")
	}
	img := sliceImage(vol, seed.Z)

	opts := &costmap.Options{
		SeedCount: cfg.CostMap.SeedCount,
		Weights:   &cfg.CostMap.Weights,
		Tuning:    &cfg.CostMap.Tuning,
		Debug:     debug,
		Logger:    &logger,
	}
	if roi != nil {
		rect := grid.Rect{X0: roi.Box.Min.X, Y0: roi.Box.Min.Y, X1: roi.Box.Max.X, Y1: roi.Box.Max.Y}
		opts.ROI = &rect
	}

	start := time.Now()
	res, err := costmap.NewSession().ComputeCostDistanceMap(ctx, img,
		grid.Point{X: seed.X, Y: seed.Y}, opts)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("segmentation cancelled")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("cost-distance solve failed")
	}
	elapsed := time.Since(start)

	threshold := res.ThresholdFromSlider(slider, 0)
	included := 0
	for _, d := range res.Dist {
		if float64(d) <= threshold {
			included++
		}
	}

	fmt.Printf("Included pixels: %d\n", included)
	fmt.Printf("Seed value: %.1f\n", res.Stats.SeedValue)
	fmt.Printf("Threshold: %.4f\n", threshold)
	fmt.Printf("Elapsed: %.2fs\n", elapsed.Seconds())

	if save {
		field, err := visualization.RenderDistanceField(res.Dist, img.W, img.H)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to render the distance field")
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			logger.Fatal().Err(err).Msg("failed to create the output directory")
		}
		path := filepath.Join(outputDir, fmt.Sprintf("distance_z%03d.jpg", seed.Z))
		if err := visualization.NewViewer(vol).SaveSlice(field, path); err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("failed to save the distance field")
		}
		logger.Info().Str("path", path).Msg("distance field saved")
	}
}

// sliceImage converts the z slice of a normalized volume into a byte image.
func sliceImage(vol *grid.Volume, z int) *grid.Image {
	img := grid.NewImage(vol.NX, vol.NY)
	for y := 0; y < vol.NY; y++ {
		for x := 0; x < vol.NX; x++ {
			v := vol.At(x, y, z)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.Pix[img.Idx(x, y)] = uint8(v*255 + 0.5)
		}
	}
	return img
}

// parseTriple parses "a,b,c" into three ints.
func parseTriple(s string) (int, int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected three comma-separated values, got %q", s)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid value %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// parseBox parses "x0,y0,z0:x1,y1,z1" into an inclusive box.
func parseBox(s string) (grid.Box, error) {
	halves := strings.Split(s, ":")
	if len(halves) != 2 {
		return grid.Box{}, fmt.Errorf("expected min:max corners, got %q", s)
	}
	x0, y0, z0, err := parseTriple(halves[0])
	if err != nil {
		return grid.Box{}, err
	}
	x1, y1, z1, err := parseTriple(halves[1])
	if err != nil {
		return grid.Box{}, err
	}
	return grid.Box{
		Min: grid.Point3{X: x0, Y: y0, Z: z0},
		Max: grid.Point3{X: x1, Y: y1, Z: z1},
	}, nil
}
