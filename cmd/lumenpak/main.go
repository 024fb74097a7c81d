// Copyright (c) 2026 lumen3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// lumenpak creates, lists and extracts pak resource archives.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/lumen3d/lumen/utility/pak"
)

// userName runs in the var block below so the author flag default is
// set before flag registration
func userName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Name
}

var (
	currentUserName = userName()
	author          = flag.String("author", currentUserName, "Set the author of the archive when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the given archive into the current directory")
	compress        = flag.String("c", "", "Compress the given file/folder")
	list            = flag.String("l", "", "List the contents of the given archive")
	dstFile         = flag.String("f", "out.pak", "Destination file")
)

func main() {
	flag.Parse()

	ops := 0
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		fatal(errors.New("only one operation at a time"))
	}

	switch {
	case *compress != "":
		if err := compressFiles(); err != nil {
			fatal(err)
		}
	case *extract != "":
		if err := extractFiles(); err != nil {
			fatal(err)
		}
	case *list != "":
		if err := listFiles(); err != nil {
			fatal(err)
		}
	default:
		flag.PrintDefaults()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func compressFiles() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	var filesToCompress []string
	if err := filepath.Walk(*compress, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	}); err != nil {
		return err
	}

	builder, err := pak.NewBuilder(pak.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	for _, ftc := range filesToCompress {
		data, err := os.ReadFile(ftc)
		if err != nil {
			return err
		}
		if err := builder.Add(filepath.ToSlash(ftc), data); err != nil {
			return err
		}
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := builder.WriteTo(dst); err != nil {
		return err
	}
	return nil
}

func extractFiles() error {
	archive, err := pak.OpenFile(*extract)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, name := range archive.Names() {
		data, err := archive.ReadAll(name)
		if err != nil {
			return err
		}
		out := filepath.FromSlash(name)
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		fmt.Println(out)
	}
	return nil
}

func listFiles() error {
	archive, err := pak.OpenFile(*list)
	if err != nil {
		return err
	}
	defer archive.Close()

	header := archive.Header()
	fmt.Printf("author: %s, version: %d, created: %s\n",
		header.Author, header.Version, time.Unix(header.DateCreated, 0).Format(time.RFC3339))
	for _, e := range header.Index {
		fmt.Printf("%12d %12d  %s\n", e.Size, e.CompressedSize, e.Name)
	}
	return nil
}
