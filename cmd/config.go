package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
)

type serviceConfigService struct {
	Port      string `json:"port,omitempty"`
	AssetsDir string `json:"assets_dir,omitempty"`
}

type serviceConfigArchive struct {
	Host        string `json:"host,omitempty"`
	ConnTimeout string `json:"conn_timeout,omitempty"`
	ReadTimeout string `json:"read_timeout,omitempty"`
}

type serviceConfigSearch struct {
	DefaultRows   int `json:"default_rows,omitempty"`
	DebounceMS    int `json:"debounce_ms,omitempty"`
	ThrottleMS    int `json:"throttle_ms,omitempty"`
	FacetsPerPage int `json:"facets_per_page,omitempty"`
	FacetRetryMS  int `json:"facet_retry_ms,omitempty"`
}

type serviceConfigCache struct {
	RedisHost          string `json:"redis_host,omitempty"`
	RedisPass          string `json:"redis_pass,omitempty"`
	RedisDB            int    `json:"redis_db,omitempty"`
	FacetExpireMinutes string `json:"facet_expire_minutes,omitempty"`
	ItemExpireHours    string `json:"item_expire_hours,omitempty"`
}

type serviceConfig struct {
	Service serviceConfigService `json:"service,omitempty"`
	Archive serviceConfigArchive `json:"archive,omitempty"`
	Search  serviceConfigSearch  `json:"search,omitempty"`
	Cache   serviceConfigCache   `json:"cache,omitempty"`
}

func getSortedJSONEnvVars() []string {
	var keys []string

	for _, keyval := range os.Environ() {
		key := strings.Split(keyval, "=")[0]
		if strings.HasPrefix(key, "ARCHIVE_BROWSE_WS_JSON_") {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}

func loadConfig() *serviceConfig {
	cfg := serviceConfig{}

	// json configs

	envs := getSortedJSONEnvVars()

	valid := true

	for _, env := range envs {
		log.Printf("[CONFIG] loading %s ...", env)
		if val := os.Getenv(env); val != "" {
			dec := json.NewDecoder(bytes.NewReader([]byte(val)))
			dec.DisallowUnknownFields()

			if err := dec.Decode(&cfg); err != nil {
				log.Printf("error decoding %s: %s", env, err.Error())
				valid = false
			}
		}
	}

	if valid == false {
		log.Printf("exiting due to json decode error(s) above")
		os.Exit(1)
	}

	// optional convenience overrides to simplify terraform config

	if host := os.Getenv("ARCHIVE_BROWSE_WS_ARCHIVE_HOST"); host != "" {
		cfg.Archive.Host = host
	}

	if host := os.Getenv("ARCHIVE_BROWSE_WS_REDIS_HOST"); host != "" {
		cfg.Cache.RedisHost = host
	}

	// search behavior defaults

	if cfg.Search.DefaultRows <= 0 {
		cfg.Search.DefaultRows = 50
	}

	if cfg.Search.DebounceMS <= 0 {
		cfg.Search.DebounceMS = 1000
	}

	if cfg.Search.ThrottleMS <= 0 {
		cfg.Search.ThrottleMS = 100
	}

	if cfg.Search.FacetsPerPage <= 0 {
		cfg.Search.FacetsPerPage = 50
	}

	if cfg.Search.FacetRetryMS <= 0 {
		cfg.Search.FacetRetryMS = 2000
	}

	bytes, err := json.Marshal(cfg)
	if err != nil {
		log.Printf("error encoding service config json: %s", err.Error())
		os.Exit(1)
	}

	log.Printf("[CONFIG] composite json:")
	log.Printf("\n%s", string(bytes))

	return &cfg
}
