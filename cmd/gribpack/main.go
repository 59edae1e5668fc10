package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/gribpack/catalog"
	"github.com/wippyai/gribpack/config"
	"github.com/wippyai/gribpack/engine"
	"github.com/wippyai/gribpack/marshal"
	"github.com/wippyai/gribpack/metadata"
	"github.com/wippyai/gribpack/samples"
	"github.com/wippyai/gribpack/server"
	"github.com/wippyai/gribpack/session"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		decoderFile = flag.String("decoder", "", "Path to g2c wasm build (overrides decoder.wasm)")
		gribFile    = flag.String("file", "", "Path to GRIB2 message")
		fieldNum    = flag.Int("field", 1, "Field number to package (1-based)")
		list        = flag.Bool("list", false, "List every field of the message and exit")
		serve       = flag.String("serve", "", "Serve the message over HTTP on this address (overrides server.listen)")
		catalogPath = flag.String("catalog", "", "Record listed fields in this SQLite catalog (overrides catalog.path)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *decoderFile != "" {
		cfg.Decoder.Wasm = *decoderFile
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *serve != "" {
		cfg.Server.Listen = *serve
	}

	if cfg.Decoder.Wasm == "" || *gribFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: gribpack -decoder <g2c.wasm> -file <msg.grib2> [-field N]")
		fmt.Fprintln(os.Stderr, "       gribpack -decoder <g2c.wasm> -file <msg.grib2> -list [-catalog fields.db]")
		fmt.Fprintln(os.Stderr, "       gribpack -decoder <g2c.wasm> -file <msg.grib2> -serve :8080")
		fmt.Fprintln(os.Stderr, "       gribpack -decoder <g2c.wasm> -file <msg.grib2> -i  (interactive mode)")
		os.Exit(1)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	engine.SetLogger(logger.Named("engine"))
	marshal.SetLogger(logger.Named("marshal"))
	session.SetLogger(logger.Named("session"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			err = fmt.Errorf("interactive mode needs a terminal")
			break
		}
		err = runInteractive(cfg, *gribFile)
	case *serve != "":
		err = runServer(ctx, cfg, *gribFile, logger)
	case *list:
		err = runList(ctx, cfg, *gribFile)
	default:
		err = runField(ctx, cfg, *gribFile, *fieldNum)
	}
	if err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

func runField(ctx context.Context, cfg *config.Config, gribFile string, index int) error {
	msg, err := os.ReadFile(gribFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	d, err := openDecoder(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close(ctx)

	h, err := d.session.Process(ctx, msg, index)
	if err != nil {
		return fmt.Errorf("field %d: %w", index, err)
	}
	defer d.session.Release(h)

	v, err := d.session.View(h)
	if err != nil {
		return err
	}
	ptr, _ := d.session.Pointer(h)

	fmt.Printf("Package: 0x%08x\n", ptr)
	fmt.Printf("Metadata: %d bytes at 0x%08x\n", v.Package.MetadataLen, v.Package.MetadataPtr)
	fmt.Printf("Data: %d points, %d bytes at 0x%08x\n", v.Package.NumPoints, v.Package.DataSize, v.Package.DataPtr)
	fmt.Printf("\n%s\n", v.Metadata)

	sum := samples.Summarize(v.Samples)
	fmt.Printf("\nValid %d of %d, min %g, max %g, mean %g\n", sum.Valid, sum.Count, sum.Min, sum.Max, sum.Mean)
	return nil
}

func runList(ctx context.Context, cfg *config.Config, gribFile string) error {
	msg, err := os.ReadFile(gribFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	d, err := openDecoder(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close(ctx)

	fields, err := d.session.Scan(ctx, msg)
	if err != nil {
		return err
	}

	fmt.Printf("Message: %s (%d bytes)\n", gribFile, len(msg))
	fmt.Printf("Fields: %d\n\n", len(fields))
	for _, f := range fields {
		fmt.Println(describe(f))
	}

	if cfg.Catalog.Path == "" {
		return nil
	}
	c, err := catalog.Open(ctx, cfg.Catalog.Path)
	if err != nil {
		return err
	}
	defer c.Close()

	digest := catalog.Digest(msg)
	if err := c.PutAll(ctx, digest, filepath.Base(gribFile), fields); err != nil {
		return err
	}
	fmt.Printf("\nCataloged %d fields as %s\n", len(fields), digest[:12])
	return nil
}

func runServer(ctx context.Context, cfg *config.Config, gribFile string, logger *zap.Logger) error {
	msg, err := os.ReadFile(gribFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	d, err := openDecoder(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close(context.Background())

	srv := server.New(server.Config{Listen: cfg.Server.Listen, Source: filepath.Base(gribFile)},
		d.session, msg, logger.Named("server"))
	return srv.Start(ctx)
}

// describe renders one line of a field listing.
func describe(f session.Field) string {
	doc := f.Document
	category, number := doc.Parameter()
	rt := doc.ReferenceTime()

	var b strings.Builder
	fmt.Fprintf(&b, "%3d  %-14s %3d/%-3d", f.Index, doc.DisciplineName(), category, number)
	fmt.Fprintf(&b, "  %04d-%02d-%02d %02d:%02d", rt[0], rt[1], rt[2], rt[3], rt[4])
	fmt.Fprintf(&b, "  %s", gridString(doc))
	if f.Summary.Valid > 0 {
		lo, hi := f.Summary.Range()
		fmt.Fprintf(&b, "  [%g, %g]", lo, hi)
	} else {
		b.WriteString("  [no data]")
	}
	return b.String()
}

func gridString(doc *metadata.Document) string {
	g := doc.Grid
	if g.Nx < 0 {
		return fmt.Sprintf("template %s, %d points", templateString(doc.Sections.GridDefinition), g.NumPoints)
	}
	return fmt.Sprintf("%dx%d (%.2f,%.2f)-(%.2f,%.2f)", g.Nx, g.Ny, g.LatFirst, g.LonFirst, g.LatLast, g.LonLast)
}

func templateString(s metadata.SectionDoc) string {
	if s.TemplateNum == nil {
		return "-"
	}
	return fmt.Sprintf("3.%d", *s.TemplateNum)
}
