package replay

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/reel/types"
)

// optionsFile is the YAML form of replay options. Pointer fields
// distinguish "absent" from a zero value, so a file only overrides what
// it mentions.
type optionsFile struct {
	Filter         *string `yaml:"filter"`
	PlayFromTime   *int64  `yaml:"play_from_time"`
	PlayUntilTime  *int64  `yaml:"play_until_time"`
	PlayFromSeqNo  *int64  `yaml:"play_from_seq_no"`
	PlayUntilSeqNo *int64  `yaml:"play_until_seq_no"`
	ReplayRate     string  `yaml:"replay_rate"`
	PauseStrategy  string  `yaml:"pause_strategy"`
	CompleteAtEOF  *bool   `yaml:"complete_at_eof"`
	PollInterval   string  `yaml:"poll_interval"`
}

// OptionsFromYAML parses a YAML document into replay options, suitable
// for keeping reproducible replay scenarios in config files:
//
//	filter: prices
//	play_from_seq_no: 100
//	replay_rate: actual_time
//	complete_at_eof: true
//	poll_interval: 5ms
//
// replay_rate accepts "as_fast_as_possible" or "actual_time";
// pause_strategy accepts "yield" or "spin"; poll_interval is a Go
// duration string. Omitted fields keep their defaults. The returned
// options are not validated here; Play validates the merged result.
func OptionsFromYAML(data []byte) ([]Option, error) {
	var f optionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("reel: failed to parse replay options: %w", err)
	}

	var opts []Option

	if f.Filter != nil {
		opts = append(opts, WithFilter(*f.Filter))
	}
	if f.PlayFromTime != nil {
		opts = append(opts, WithPlayFromTime(*f.PlayFromTime))
	}
	if f.PlayUntilTime != nil {
		opts = append(opts, WithPlayUntilTime(*f.PlayUntilTime))
	}
	if f.PlayFromSeqNo != nil {
		opts = append(opts, WithPlayFromSeqNo(*f.PlayFromSeqNo))
	}
	if f.PlayUntilSeqNo != nil {
		opts = append(opts, WithPlayUntilSeqNo(*f.PlayUntilSeqNo))
	}

	switch f.ReplayRate {
	case "":
	case "as_fast_as_possible":
		opts = append(opts, WithReplayRate(AsFastAsPossible))
	case "actual_time":
		opts = append(opts, WithReplayRate(ActualTime))
	default:
		return nil, fmt.Errorf("%w: unknown replay rate %q",
			types.ErrInvalidOptions, f.ReplayRate)
	}

	switch f.PauseStrategy {
	case "":
	case "yield":
		opts = append(opts, WithPauseStrategy(Yield))
	case "spin":
		opts = append(opts, WithPauseStrategy(Spin))
	default:
		return nil, fmt.Errorf("%w: unknown pause strategy %q",
			types.ErrInvalidOptions, f.PauseStrategy)
	}

	if f.CompleteAtEOF != nil {
		opts = append(opts, WithCompleteAtEOF(*f.CompleteAtEOF))
	}

	if f.PollInterval != "" {
		d, err := time.ParseDuration(f.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid poll interval %q",
				types.ErrInvalidOptions, f.PollInterval)
		}
		opts = append(opts, WithPollInterval(d))
	}

	return opts, nil
}
