// Command regions detects connected regions in images from the command line.
//
//	regions -channel threshold -min-value 1 -o regions.json.zst scans/*.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/ironsheep/region-tools-mcp/internal/batch"
	"github.com/ironsheep/region-tools-mcp/internal/config"
	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/export"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
)

// Version information - set by ldflags during build
var Version = "dev"

// errUsage marks errors caused by bad flags or arguments.
var errUsage = errors.New("usage")

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds the parsed command line.
type cli struct {
	channel    string
	threshold  int
	blur       float64
	hueBins    int
	palette    string
	roi        string
	minSize    int
	maxSize    int
	minValue   int
	maxValue   int
	quantize   int
	preset     string
	presets    string
	format     string
	output     string
	overlay    string
	workers    int
	scanLines  bool
	contour    bool
	listPreset bool
	version    bool
	debug      bool

	// set records which flags appeared on the command line.
	set  map[string]bool
	args []string
}

func parseFlags(args []string, stderr io.Writer) (*cli, error) {
	c := &cli{set: make(map[string]bool)}
	fs := flag.NewFlagSet("regions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: regions [flags] image...")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Images may be PNG, JPEG, GIF, BMP, TIFF, WebP or PDF (path.pdf#page=N).")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	fs.StringVar(&c.channel, "channel", "", "channel: gray, threshold, red, green, blue, alpha, hue, palette (default gray)")
	fs.IntVar(&c.threshold, "threshold", 0, "cut-off for the threshold channel, 0-255 (default 128)")
	fs.Float64Var(&c.blur, "blur", 0, "Gaussian blur radius applied before channel extraction")
	fs.IntVar(&c.hueBins, "hue-bins", 0, "hue sectors for the hue channel (default 12)")
	fs.StringVar(&c.palette, "palette", "", "comma-separated hex colours for the palette channel")
	fs.StringVar(&c.roi, "roi", "", "region of interest: x1,y1,x2,y2 or a name such as top-left or center")
	fs.IntVar(&c.minSize, "min-size", 0, "minimum region size in pixels")
	fs.IntVar(&c.maxSize, "max-size", 0, "maximum region size in pixels, 0 for unbounded")
	fs.IntVar(&c.minValue, "min-value", 0, "minimum channel value")
	fs.IntVar(&c.maxValue, "max-value", 0, "maximum channel value")
	fs.IntVar(&c.quantize, "quantize", 0, "treat channel values in buckets of this width as equal")
	fs.StringVar(&c.preset, "preset", "", "named detection preset; explicit flags override it")
	fs.StringVar(&c.presets, "presets", os.Getenv(config.EnvPresets), "YAML presets file merged over the built-ins")
	fs.StringVar(&c.format, "format", "json", "stdout format: json or yaml")
	fs.StringVar(&c.output, "o", "", "write results to this .json/.yaml/.yml file, .zst suffix compresses")
	fs.StringVar(&c.overlay, "overlay", "", "write a region overlay of the single input image to this file")
	fs.IntVar(&c.workers, "workers", 0, "images processed at once (default from CPU count and free memory)")
	fs.BoolVar(&c.scanLines, "scanlines", false, "include each region's horizontal runs")
	fs.BoolVar(&c.contour, "contour", false, "include each region's outer contour")
	fs.BoolVar(&c.listPreset, "list-presets", false, "print the available presets and exit")
	fs.BoolVar(&c.version, "version", false, "print version and exit")
	fs.BoolVar(&c.debug, "debug", config.FromEnv().Debug(), "log progress to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	c.args = fs.Args()
	return c, nil
}

// options resolves the preset and explicit flags into detection options.
func (c *cli) options(presets *config.Presets) (detection.Options, error) {
	var opts detection.Options
	if c.preset != "" {
		p, ok := presets.Lookup(c.preset)
		if !ok {
			return opts, fmt.Errorf("%w: unknown preset %q (available: %s)", errUsage, c.preset, strings.Join(presets.Names(), ", "))
		}
		var err error
		if opts, err = p.Options(); err != nil {
			return opts, err
		}
	}

	if c.set["channel"] {
		opts.Channel.Mode = imaging.ChannelMode(c.channel)
	}
	if c.set["threshold"] {
		if c.threshold < 0 || c.threshold > 255 {
			return opts, fmt.Errorf("%w: -threshold must be between 0 and 255, got %d", errUsage, c.threshold)
		}
		opts.Channel.Threshold = uint8(c.threshold)
	}
	if c.set["blur"] {
		opts.Channel.BlurRadius = c.blur
	}
	if c.set["hue-bins"] {
		opts.Channel.HueBins = c.hueBins
	}
	if c.set["palette"] {
		opts.Channel.Palette = strings.Split(c.palette, ",")
	}
	if c.set["min-size"] {
		opts.MinSize = c.minSize
	}
	if c.set["max-size"] {
		opts.MaxSize = c.maxSize
	}
	if c.set["min-value"] {
		opts.MinValue = detection.IntPtr(c.minValue)
	}
	if c.set["max-value"] {
		opts.MaxValue = detection.IntPtr(c.maxValue)
	}
	if c.set["quantize"] {
		opts.Quantize = c.quantize
	}
	opts.IncludeScanLines = opts.IncludeScanLines || c.scanLines
	opts.IncludeContour = opts.IncludeContour || c.contour

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("%w: %v", errUsage, err)
	}
	return opts, nil
}

// resolveROI turns -roi into a rectangle. Names depend on the image size,
// so they are only accepted with a single input.
func (c *cli) resolveROI(cache *imaging.ImageCache) (image.Rectangle, error) {
	if c.roi == "" {
		return image.Rectangle{}, nil
	}
	if strings.Contains(c.roi, ",") {
		parts := strings.Split(c.roi, ",")
		if len(parts) != 4 {
			return image.Rectangle{}, fmt.Errorf("%w: -roi needs x1,y1,x2,y2, got %q", errUsage, c.roi)
		}
		var v [4]int
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return image.Rectangle{}, fmt.Errorf("%w: -roi coordinate %q is not an integer", errUsage, p)
			}
			v[i] = n
		}
		if v[0] >= v[2] || v[1] >= v[3] {
			return image.Rectangle{}, fmt.Errorf("%w: invalid -roi: x1 must be < x2, y1 must be < y2", errUsage)
		}
		return image.Rect(v[0], v[1], v[2], v[3]), nil
	}

	if len(c.args) != 1 {
		return image.Rectangle{}, fmt.Errorf("%w: a named -roi needs exactly one image", errUsage)
	}
	img, err := cache.Load(c.args[0])
	if err != nil {
		return image.Rectangle{}, err
	}
	b := img.Bounds()
	r, err := imaging.NamedROI(image.Rect(0, 0, b.Dx(), b.Dy()), c.roi)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return r, nil
}

// run executes the command and returns the process exit code: 0 on success,
// 1 when any image failed and 2 for usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if c.version {
		fmt.Fprintf(stdout, "regions %s\n", Version)
		return 0
	}

	code, err := c.execute(ctx, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "regions: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return code
}

func (c *cli) execute(ctx context.Context, stdout io.Writer) (int, error) {
	presets, err := config.LoadWithDefaults(c.presets)
	if err != nil {
		return 1, err
	}
	if c.listPreset {
		return 0, config.Write(stdout, presets)
	}

	if len(c.args) == 0 {
		return 2, fmt.Errorf("%w: no images given", errUsage)
	}
	if c.overlay != "" && len(c.args) != 1 {
		return 2, fmt.Errorf("%w: -overlay needs exactly one image", errUsage)
	}
	stdoutFormat := export.Format{Kind: export.Kind(c.format)}
	if stdoutFormat.Kind != export.JSON && stdoutFormat.Kind != export.YAML {
		return 2, fmt.Errorf("%w: -format must be json or yaml, got %q", errUsage, c.format)
	}
	if c.output != "" {
		if _, err := export.FormatFromPath(c.output); err != nil {
			return 2, fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	opts, err := c.options(presets)
	if err != nil {
		return 2, err
	}
	cache := imaging.NewImageCache()
	if opts.ROI, err = c.resolveROI(cache); err != nil {
		return 1, err
	}

	items, summary, err := batch.Run(ctx, cache, c.args, opts, batch.Limits{
		Workers:    c.workers,
		KeepCached: c.overlay != "",
		Debug:      c.debug,
	})
	if err != nil {
		return 1, err
	}
	if c.debug {
		log.Printf("%d images, %d failed, %d regions, %d workers", summary.Images, summary.Failed, summary.Regions, summary.Workers)
	}

	for _, item := range items {
		if item.Err != nil {
			log.Printf("%s: %v", item.Path, item.Err)
		}
	}

	doc := export.FromBatch(items)
	if c.output != "" {
		if err := export.WriteFile(c.output, doc); err != nil {
			return 1, err
		}
	} else if err := export.Write(stdout, doc, stdoutFormat); err != nil {
		return 1, err
	}

	if c.overlay != "" && items[0].Err == nil {
		if err := c.writeOverlay(cache, opts); err != nil {
			return 1, err
		}
	}

	if summary.Failed > 0 {
		return 1, nil
	}
	return 0, nil
}

func (c *cli) writeOverlay(cache *imaging.ImageCache, opts detection.Options) error {
	img, err := cache.Load(c.args[0])
	if err != nil {
		return err
	}
	_, regs, _, err := detection.NewRunner().Regions(img, opts)
	if err != nil {
		return err
	}
	out, err := imaging.DrawOverlay(img, regs, imaging.OverlayOptions{Outline: true})
	if err != nil {
		return err
	}
	return imaging.SaveOverlay(out, c.overlay)
}
