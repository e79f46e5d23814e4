package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"

	"stl-viewer/internal/config"
	"stl-viewer/internal/mathutil"
	"stl-viewer/internal/stl"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	dump := flag.Bool("dump", false, "Dump all triangles")
	check := flag.Bool("check", false, "Report facet normals that are not unit length")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stlinspect [flags] <file.stl | catalog index>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Setup(*configFile, config.Flags{LogLevel: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := cfg.NewRuntime(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Logger.Sync()

	// A bare number selects from the catalog; anything else is a path
	path := flag.Arg(0)
	if idx, err := strconv.Atoi(path); err == nil {
		e, err := cfg.Scanner(rt).Scan(ctx, cfg.Roots).Get(idx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path = e.Path
	}

	rc, err := rt.Resolver.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v: %v\n", stl.ErrIoUnavailable, err)
		os.Exit(1)
	}
	defer rc.Close()

	format, err := stl.DetectFormat(rc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dec := stl.Decoder{MaxTriangles: cfg.MaxTriangles, Logger: rt.Logger.With(zap.String("path", path))}
	var mesh stl.Mesh
	if err := dec.Load(&mesh, rc); err != nil {
		fmt.Printf("Format: %s\n", format)
		fmt.Fprintf(os.Stderr, "Error: %v (%s)\n", err, stl.ErrorKind(err))
		os.Exit(1)
	}

	lo, hi, c := mesh.Min(), mesh.Max(), mesh.Center()
	fmt.Printf("File: %s\n", path)
	fmt.Printf("Format: %s\n", format)
	fmt.Printf("Triangles: %d\n", mesh.Len())
	fmt.Printf("Min: %s\n", vec(lo))
	fmt.Printf("Max: %s\n", vec(hi))
	fmt.Printf("Center: %s\n", vec(c))
	fmt.Printf("Extent: %g\n", mesh.Extent())

	bad := 0
	for n, t := range mesh.Triangles() {
		if *check {
			if l := mathutil.FromSTL(t.Normal).Len(); math.Abs(l-1) > 1e-3 {
				fmt.Printf("Triangle %d normal %s: length %.4f != 1\n", n, vec(t.Normal), l)
				bad++
			}
		}
		if *dump {
			fmt.Printf("Triangle %d:\n", n)
			fmt.Printf("  n  %s\n", vec(t.Normal))
			for _, v := range t.Vertices {
				fmt.Printf("  v  %s\n", vec(v))
			}
		}
	}
	if *check {
		fmt.Printf("Non-unit normals: %d/%d\n", bad, mesh.Len())
	}
}

func vec(v stl.Vector3) string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
