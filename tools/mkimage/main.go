package mkimage

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/clktmr/pc64/drivers/sdcard"
)

func must[T any](ret T, err error) T {
	if err != nil {
		log.Fatalln(err)
	}
	return ret
}

const usageString = `SD card image utility.

Usage:

	%s [flags] <command> [arguments]

The commands are:

	create <image> [file...]  create a FAT32 image holding files
	add <image> <file...>     copy files into an image
	ls <image>                list the files of an image
	cat <image> <name>        write a file of an image to stdout

`

var (
	flags = flag.NewFlagSet("mkimage", flag.ExitOnError)

	size  = flags.Int64("size", sdcard.DefaultImageSize, "image size in bytes")
	label = flags.String("label", "PC64", "volume label")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "mkimage")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() < 2 {
		flags.Usage()
		os.Exit(1)
	}
	name := flags.Arg(1)
	files := flags.Args()[2:]

	switch flags.Arg(0) {
	case "create":
		img := must(sdcard.CreateImage(name, *size, *label))
		defer img.Close()
		add(img, files)
	case "add":
		if len(files) == 0 {
			flags.Usage()
			os.Exit(1)
		}
		img := must(sdcard.OpenImage(name))
		defer img.Close()
		add(img, files)
	case "ls":
		img := must(sdcard.OpenImage(name))
		defer img.Close()
		fsys := must(img.Mount())
		for _, n := range must(fsys.List()) {
			f := must(fsys.Open(n))
			fmt.Printf("%10d %s\n", f.Size(), n)
			f.Close()
		}
	case "cat":
		if len(files) != 1 {
			flags.Usage()
			os.Exit(1)
		}
		img := must(sdcard.OpenImage(name))
		defer img.Close()
		f := must(must(img.Mount()).Open(files[0]))
		defer f.Close()
		must(io.Copy(os.Stdout, f))
	default:
		fmt.Fprintf(flags.Output(), "unknown command: %s\n", flags.Arg(0))
		flags.Usage()
		os.Exit(1)
	}
}

// add copies host files into the root directory of img.
func add(img *sdcard.Image, files []string) {
	fsys := must(img.Mount())
	for _, file := range files {
		r := must(os.Open(file))
		w := must(fsys.Create(filepath.Base(file)))
		n := must(io.Copy(w, r))
		if err := w.Close(); err != nil {
			log.Fatalln(err)
		}
		r.Close()
		log.Printf("%s: %d bytes", filepath.Base(file), n)
	}
}
