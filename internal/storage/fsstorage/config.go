package fsstorage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const DefaultJPEGQuality = 90

// SizeLabel is a named maximum-fit bound for one rendition.
type SizeLabel struct {
	Name      string
	MaxWidth  int
	MaxHeight int
}

func (s SizeLabel) dirName() string {
	return renditionDirPrefix + s.Name
}

// DefaultSizes returns the renditions every asset gets unless configured otherwise.
func DefaultSizes() []SizeLabel {
	return []SizeLabel{
		{Name: "small", MaxWidth: 250, MaxHeight: 250},
		{Name: "large", MaxWidth: 500, MaxHeight: 500},
	}
}

// Config is passed explicitly to New; the store never reads ambient settings.
type Config struct {
	ImageRoot   string
	Sizes       []SizeLabel // generated in this order
	JPEGQuality int
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ImageRoot) == "" {
		return errors.New("image root is empty")
	}
	if len(c.Sizes) == 0 {
		return errors.New("no rendition sizes configured")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality %d is out of range 1..100", c.JPEGQuality)
	}

	seen := make(map[string]bool, len(c.Sizes))
	for _, s := range c.Sizes {
		if !validLabel(s.Name) {
			return fmt.Errorf("invalid size label %q", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate size label %q", s.Name)
		}
		if s.MaxWidth <= 0 || s.MaxHeight <= 0 {
			return fmt.Errorf("size %q has non-positive bounds %dx%d", s.Name, s.MaxWidth, s.MaxHeight)
		}
		seen[s.Name] = true
	}
	return nil
}

// ParseSizeLabels reads the env form "small:250x250,large:500x500".
// Order is preserved.
func ParseSizeLabels(raw string) ([]SizeLabel, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty size list")
	}

	var sizes []SizeLabel
	for _, item := range strings.Split(raw, ",") {
		name, bounds, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok {
			return nil, fmt.Errorf("size %q: expected label:WxH", item)
		}
		ws, hs, ok := strings.Cut(strings.ToLower(bounds), "x")
		if !ok {
			return nil, fmt.Errorf("size %q: expected WxH bounds", item)
		}
		w, err := strconv.Atoi(strings.TrimSpace(ws))
		if err != nil {
			return nil, fmt.Errorf("size %q: bad width: %w", item, err)
		}
		h, err := strconv.Atoi(strings.TrimSpace(hs))
		if err != nil {
			return nil, fmt.Errorf("size %q: bad height: %w", item, err)
		}
		sizes = append(sizes, SizeLabel{Name: strings.TrimSpace(name), MaxWidth: w, MaxHeight: h})
	}
	return sizes, nil
}

func validLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
