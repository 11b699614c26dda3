// Package config loads registry defaults from files and the environment.
//
// Settings are layered, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← EMITTER_MAX_LISTENERS, ...
//	├─────────────────────────────┤
//	│  2. Config File             │  ← emitter.toml / emitter.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, err := config.Load("emitter.toml")
//	if err != nil {
//	    return err
//	}
//	if err := config.FromEnv(&cfg); err != nil {
//	    return err
//	}
//	r := event.NewRegistry(cfg.Options()...)
//
// # File Format
//
//	max_listeners = 20
//	leak_warnings = true
//	log_level = "info"
//
// # Live Reload
//
// A Watcher reloads the file on change; Config.Apply pushes the new
// values into a running registry:
//
//	w, err := config.NewWatcher("emitter.toml")
//	if err != nil {
//	    return err
//	}
//	go w.Run(ctx, func(cfg config.Config) { cfg.Apply(r) }, nil)
package config
