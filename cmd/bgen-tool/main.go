// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bgen-tool inspects and indexes BGEN genetic-variant files. It supports three
subcommands:

	bgen-tool info  <bgenpath>
	bgen-tool index [-partitions N] [-no-checksum] <bgenpath> <metapath>
	bgen-tool cat   [-partition K] <bgenpath> <metapath>

Flags come before the positional arguments: flag parsing stops at the
first positional argument.
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bgen"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s {info,index,cat} [OPTIONS] args...\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if len(os.Args) < 2 {
		log.Fatalf("missing subcommand; one of info, index, cat required")
	}
	sub := os.Args[1]
	rest := os.Args[2:]

	switch sub {
	case "info":
		runInfo(rest)
	case "index":
		runIndex(rest)
	case "cat":
		runCat(rest)
	default:
		log.Fatalf("unrecognized subcommand %q; one of info, index, cat required", sub)
	}
}

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}
	if fs.NArg() != 1 {
		log.Fatalf("usage: bgen-tool info <bgenpath>")
	}
	path := fs.Arg(0)

	f, err := bgen.Open(path, nil)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer f.Close() // nolint: errcheck

	fmt.Printf("path:        %s\n", f.Path())
	fmt.Printf("samples:     %d\n", f.NSamples())
	fmt.Printf("variants:    %d\n", f.NVariants())
	fmt.Printf("layout:      %d\n", f.Layout())
	fmt.Printf("compression: %d\n", f.CompressionKind())
	fmt.Printf("has sample identifier block: %v\n", f.ContainSamples())
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	partitions := fs.Uint("partitions", 1, "number of partitions in the metafile")
	noChecksum := fs.Bool("no-checksum", false, "omit the trailing integrity checksum")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}
	if fs.NArg() != 2 {
		log.Fatalf("usage: bgen-tool index [-partitions N] [-no-checksum] <bgenpath> <metapath>")
	}
	bgenPath, metaPath := fs.Arg(0), fs.Arg(1)

	f, err := bgen.Open(bgenPath, nil)
	if err != nil {
		log.Fatalf("open %s: %v", bgenPath, err)
	}
	defer f.Close() // nolint: errcheck

	writeChecksum := !*noChecksum
	mf, err := bgen.CreateMetafile(f, metaPath, uint32(*partitions), &bgen.CreateOptions{
		WriteChecksum: &writeChecksum,
	})
	if err != nil {
		log.Fatalf("create metafile %s: %v", metaPath, err)
	}
	defer mf.Close() // nolint: errcheck
	log.Printf("wrote %s: %d variants across %d partitions", metaPath, mf.NVariants(), mf.NPartitions())
}

func runCat(args []string) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	partition := fs.Uint("partition", 0, "partition index to print")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}
	if fs.NArg() != 2 {
		log.Fatalf("usage: bgen-tool cat [-partition K] <bgenpath> <metapath>")
	}
	bgenPath, metaPath := fs.Arg(0), fs.Arg(1)

	f, err := bgen.Open(bgenPath, nil)
	if err != nil {
		log.Fatalf("open %s: %v", bgenPath, err)
	}
	defer f.Close() // nolint: errcheck

	mf, err := bgen.OpenMetafile(metaPath, nil)
	if err != nil {
		log.Fatalf("open metafile %s: %v", metaPath, err)
	}
	defer mf.Close() // nolint: errcheck
	log.Printf("metafile fp=%x", mf.Fingerprint())

	vars, err := mf.ReadPartition(uint32(*partition))
	if err != nil {
		log.Fatalf("read partition %d: %v", *partition, err)
	}
	nSamples := int(f.NSamples())
	for _, vm := range vars {
		g, err := bgen.OpenGenotype(f, vm.GenotypeOffset)
		if err != nil {
			log.Fatalf("open genotype for variant %s: %v", vm.ID, err)
		}
		probs := make([]float64, nSamples*g.NCombs())
		if err := g.Read(probs); err != nil {
			log.Fatalf("read genotype for variant %s: %v", vm.ID, err)
		}
		fmt.Printf("%s\t%s\t%d\t%v", vm.ID, vm.Chrom, vm.Position, vm.AlleleIDs)
		for i := 0; i < nSamples; i++ {
			row := probs[i*g.NCombs() : (i+1)*g.NCombs()]
			for _, p := range row {
				fmt.Printf("\t%g", p)
			}
		}
		fmt.Println()
		g.Close()
	}
}
