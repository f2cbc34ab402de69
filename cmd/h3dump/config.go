package main

import (
	"github.com/BurntSushi/toml"
	"github.com/gospider007/h3frame"
	log "github.com/sirupsen/logrus"
)

type config struct {
	LogLevel                     string `toml:"log_level"`
	ErrorOnHTTP3Push             bool   `toml:"error_on_http3_push"`
	IgnoreOldPriorityUpdateFrame bool   `toml:"ignore_old_priority_update_frame"`
	AllowWebTransportStream      bool   `toml:"allow_web_transport_stream"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

func (c config) options() h3frame.Options {
	return h3frame.Options{
		ErrorOnHTTP3Push:             c.ErrorOnHTTP3Push,
		IgnoreOldPriorityUpdateFrame: c.IgnoreOldPriorityUpdateFrame,
		AllowWebTransportStream:      c.AllowWebTransportStream,
	}
}

func (c config) apply() {
	if c.LogLevel == "" {
		return
	}
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	log.SetLevel(lvl)
}
