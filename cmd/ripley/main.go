// Command ripley transcodes serialized value trees between codecs and
// scaffolds serialization profiles for Go packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/ripley/codec"
	"github.com/chazu/ripley/profile"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("ripley")

func main() {
	inFormat := flag.String("in", "json", "Input codec: json or cbor")
	outFormat := flag.String("out", "cbor", "Output codec: json or cbor")
	inPath := flag.String("f", "-", "Input file, - for stdin")
	outPath := flag.String("o", "-", "Output file, - for stdout")
	dump := flag.Bool("dump", false, "Print the decoded tree in debug form instead of encoding")
	scaffold := flag.String("scaffold", "", "Generate a profile skeleton for the given Go import path")
	types := flag.String("types", "", "Comma-separated type names to include with -scaffold")
	verbose := flag.Int("v", 0, "Log verbosity (0-2)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ripley [options]\n\n")
		fmt.Fprintf(os.Stderr, "Transcodes value trees between codecs, or scaffolds serialization profiles.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ripley -in json -out cbor -f data.json -o data.cbor\n")
		fmt.Fprintf(os.Stderr, "  ripley -in cbor -dump -f data.cbor   # inspect a CBOR payload\n")
		fmt.Fprintf(os.Stderr, "  ripley -scaffold net/url -types URL  # print a profile skeleton\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if *scaffold != "" {
		if err := runScaffold(*scaffold, *types, *outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTranscode(*inFormat, *outFormat, *inPath, *outPath, *dump); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTranscode(inFormat, outFormat, inPath, outPath string, dump bool) error {
	dec, ok := codec.ByName(inFormat)
	if !ok {
		return fmt.Errorf("unknown input codec %q (have %s)", inFormat, strings.Join(codec.Names(), ", "))
	}

	data, err := readInput(inPath)
	if err != nil {
		return err
	}
	log.Debugf("read %d bytes from %s", len(data), inPath)

	tree, err := dec.Decode(data)
	if err != nil {
		return err
	}

	if dump {
		return writeOutput(outPath, []byte(tree.String()+"\n"))
	}

	enc, ok := codec.ByName(outFormat)
	if !ok {
		return fmt.Errorf("unknown output codec %q (have %s)", outFormat, strings.Join(codec.Names(), ", "))
	}
	out, err := enc.Encode(tree)
	if err != nil {
		return err
	}
	if enc.Name() == "json" {
		out = append(out, '\n')
	}
	log.Infof("transcoded %s to %s (%d bytes)", dec.Name(), enc.Name(), len(out))
	return writeOutput(outPath, out)
}

func runScaffold(importPath, typeNames, outPath string) error {
	include := map[string]bool{}
	for _, name := range strings.Split(typeNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			include[name] = true
		}
	}

	prof, err := profile.Scaffold(importPath, include)
	if err != nil {
		return err
	}
	log.Infof("scaffolded %d types from %s", len(prof.Types), importPath)

	if outPath == "-" {
		return prof.Encode(os.Stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", outPath, err)
	}
	defer f.Close()
	return prof.Encode(f)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("cannot read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
