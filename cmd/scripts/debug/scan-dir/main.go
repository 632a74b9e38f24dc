package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/jessevdk/go-flags"
	"github.com/looplet/looplet/pkg/filesystem"
	"github.com/looplet/looplet/pkg/fileutils"
	"github.com/looplet/looplet/pkg/models"
	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/afero"
)

func main() {
	log := logger.New()

	var opts struct {
		Kind string `short:"k" long:"kind" default:"video" choice:"video" choice:"audio" description:"Which extensions to match"`
		Mime bool   `short:"m" long:"mime" description:"Sniff and print each file's mime type"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/scan-dir [--kind audio] [--mime] <path/to/dir>")
		os.Exit(1)
	}

	kind, _ := models.ParseMediaKind(opts.Kind)
	root := args[0]
	svc := filesystem.NewService(afero.NewOsFs())

	files, err := svc.Walk(context.Background(), root, kind.Extensions())
	if err != nil {
		log.Err(err).Fatal("walk error")
	}
	sort.Strings(files)

	for _, rel := range files {
		line := fmt.Sprintf("%s\t%q", rel, fileutils.TitleFromName(path.Base(rel)))
		if opts.Mime {
			mtype, err := svc.DetectMimeType(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				mtype = "error: " + err.Error()
			}
			line += "\t" + mtype
		}
		fmt.Println(line)
	}
	fmt.Printf("%d %s file(s)\n", len(files), kind)
}
