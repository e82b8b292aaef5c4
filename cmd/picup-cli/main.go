package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/picup/picup/internal/client"
	"github.com/picup/picup/internal/version"
)

type cliOptions struct {
	apiBaseURL  string
	token       string
	category    string
	override    bool
	timeout     time.Duration
	showVersion bool
}

func main() {
	opts, paths := parseFlags()
	if opts.showVersion {
		fmt.Printf("PicUp CLI %s\n", version.GetInfo())
		return
	}

	if opts.token == "" {
		fmt.Fprintln(os.Stderr, "a token is required (-token)")
		os.Exit(1)
	}
	if opts.category == "" {
		fmt.Fprintln(os.Stderr, "a category is required (-category)")
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "at least one file path is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	c := client.New(opts.apiBaseURL, opts.token, opts.timeout)
	urls, err := c.Upload(ctx, opts.category, opts.override, paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload: %v\n", err)
		os.Exit(1)
	}

	for _, u := range urls {
		fmt.Println(u)
	}
}

func parseFlags() (cliOptions, []string) {
	opts := cliOptions{}
	flag.StringVar(&opts.apiBaseURL, "url", "http://127.0.0.1:19190", "base URL of the PicUp server")
	flag.StringVar(&opts.token, "token", "", "access token for uploading")
	flag.StringVar(&opts.category, "category", "", "category to upload the files to")
	flag.BoolVar(&opts.override, "override", false, "override existing files on the server")
	flag.DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	flag.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return opts, flag.Args()
}
