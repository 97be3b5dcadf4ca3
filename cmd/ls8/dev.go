// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"log"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/ezrec/ls8/emulator"
)

// devMode re-loads and re-runs the source every time it changes.
func devMode(emu *emulator.Emulator, src *source) error {
	src.Path = filepath.Clean(src.Path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(src.Path)); err != nil {
		return err
	}

	changed := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-watcher.Event:
				if filepath.Clean(ev.Name) == src.Path && !ev.IsAttrib() {
					changed <- struct{}{}
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()

	devRun(emu, src, false)

	// Coalesce bursts of events into a single run.
	var rerun <-chan time.Time
	for {
		select {
		case <-changed:
			rerun = time.After(100 * time.Millisecond)
		case <-rerun:
			devRun(emu, src, true)
		}
	}
}

// devRun loads and runs the source once, logging the outcome.
func devRun(emu *emulator.Emulator, src *source, reload bool) {
	base := filepath.Base(src.Path)

	if reload {
		log.Printf("dev: load %s", base)
		if err := src.Load(emu); err != nil {
			log.Printf("dev: %v: %v", base, err)
			return
		}
	}

	log.Printf("dev: run %s", base)
	if err := run(emu); err != nil {
		log.Printf("dev: %v", err)
		return
	}
	log.Printf("dev: halted after %d instructions", emu.Ticks())
}
