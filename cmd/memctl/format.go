package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memkit/mem/pool"
)

// printer groups digits in every %d printed through printInfo.
var printer = message.NewPrinter(language.English)

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// classConfigs are the size class tables selectable with --classes.
var classConfigs = map[string]pool.SizeClassConfig{
	"default": pool.ConfigDefault,
	"coarse":  pool.ConfigCoarse,
	"fine":    pool.ConfigFine,
}

func classConfigByName(name string) (pool.SizeClassConfig, error) {
	cfg, ok := classConfigs[strings.ToLower(name)]
	if !ok {
		return pool.SizeClassConfig{}, fmt.Errorf("unknown size class table %q (want default, coarse or fine)", name)
	}
	return cfg, nil
}

// parseSizes parses a comma separated list of positive byte counts.
func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid size %q", field)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return sizes, nil
}
