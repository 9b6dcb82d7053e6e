package pipeline

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-scrape-wishlists/config"
)

// streamMaxLen approximately caps the alert stream.
const streamMaxLen = 10000

// NewAlertWriter opens the sink selected by cfg.AlertsFormat. It returns
// nil when alerts are off.
func NewAlertWriter(ctx context.Context, cfg *config.Config) (AlertWriter, error) {
	switch cfg.AlertsFormat {
	case config.AlertsOff:
		return nil, nil
	case config.AlertsJSONL:
		w, err := NewJSONLWriter(cfg.AlertsFile)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.AlertsCSV:
		w, err := NewCSVWriter(cfg.AlertsFile)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.AlertsRedis:
		w, err := NewStreamWriter(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, streamMaxLen)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.AlertsDual:
		file, err := NewJSONLWriter(cfg.AlertsFile)
		if err != nil {
			return nil, err
		}
		stream, err := NewStreamWriter(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, streamMaxLen)
		if err != nil {
			file.Close()
			return nil, err
		}
		return NewDualWriter(file, stream), nil
	default:
		return nil, fmt.Errorf("unknown alerts format %q", cfg.AlertsFormat)
	}
}
