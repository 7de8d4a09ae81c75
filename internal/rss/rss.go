package rss

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/newsroom/internal/news"
)

//go:embed feeds.yaml
var defaultFeeds []byte

// FeedsConfig is YAML config structure
// feeds:
//   - name: BBC News
//     url: https://...
//     category: world
type FeedsConfig struct {
	Feeds []news.FeedSource `yaml:"feeds"`
}

// LoadSources reads the feed list from a YAML file. An empty path selects
// the list compiled into the binary.
func LoadSources(path string) ([]news.FeedSource, error) {
	if path == "" {
		return decodeSources(bytes.NewReader(defaultFeeds))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodeSources(f)
}

func decodeSources(r io.Reader) ([]news.FeedSource, error) {
	var cfg FeedsConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config: %w", err)
	}

	for i, src := range cfg.Feeds {
		if strings.TrimSpace(src.Name) == "" || strings.TrimSpace(src.URL) == "" {
			return nil, fmt.Errorf("feed #%d: name and url are required", i+1)
		}
	}
	if len(cfg.Feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}
	return cfg.Feeds, nil
}
