package main

import (
	"context"
	"os"

	"texify/internal/driver"
	"texify/internal/source"
	"texify/internal/ui"
)

type dirOutcome struct {
	fileSet *source.FileSet
	results []driver.Result
	err     error
}

// inspectDirWithUI runs a directory inspection while a progress view
// follows it on stderr.
func inspectDirWithUI(ctx context.Context, title, dir string, files []string, opts driver.Options) (*source.FileSet, []driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan dirOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		fileSet, results, err := driver.InspectDir(ctx, dir, optsCopy)
		outcomeCh <- dirOutcome{fileSet: fileSet, results: results, err: err}
		close(events)
	}()

	uiErr := ui.Run(title, files, events, os.Stderr)
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.fileSet, outcome.results, uiErr
	}
	return outcome.fileSet, outcome.results, outcome.err
}
