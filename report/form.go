package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrNotAFormURL = errors.New("form: url must point to a viewform page")

const formUserAgent = "Mozilla/5.0 (X11; Linux i686) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/28.0.1500.52 Safari/537.36"

// FormPoster submits values to a Google form. The form is described by
// its prefilled viewform link: an entry prefilled with 1970-01-01 takes
// the date, 00:00 takes the time and an integer N takes the N-th value.
type FormPoster struct {
	prefix  string
	date    string
	clock   string
	entries map[int]string
	client  *http.Client
}

func ParseFormURL(raw string) (*FormPoster, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/viewform") {
		return nil, ErrNotAFormURL
	}
	p := &FormPoster{
		prefix:  u.Scheme + "://" + u.Host + strings.TrimSuffix(u.Path, "/viewform"),
		entries: map[int]string{},
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for key, vals := range u.Query() {
		if !strings.HasPrefix(key, "entry.") || len(vals) == 0 {
			continue
		}
		switch v := vals[0]; v {
		case "1970-01-01":
			p.date = key
		case "00:00":
			p.clock = key
		default:
			idx, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("form: entry %s: value index %q is not a number", key, v)
			}
			p.entries[idx] = key
		}
	}
	return p, nil
}

// WithClient replaces the HTTP client.
func (p *FormPoster) WithClient(c *http.Client) *FormPoster {
	p.client = c
	return p
}

// Values builds the form payload. A zero when leaves date and time out.
func (p *FormPoster) Values(when time.Time, values []uint16) (url.Values, error) {
	form := url.Values{}
	if !when.IsZero() {
		if p.date != "" {
			form.Set(p.date, when.UTC().Format(time.DateOnly))
		}
		if p.clock != "" {
			form.Set(p.clock, when.UTC().Format("15:04"))
		}
	}
	for idx, key := range p.entries {
		if idx < 0 || idx >= len(values) {
			return nil, fmt.Errorf("form: entry %s wants value %d, have %d", key, idx, len(values))
		}
		form.Set(key, strconv.Itoa(int(values[idx])))
	}
	return form, nil
}

func (p *FormPoster) Post(ctx context.Context, when time.Time, values []uint16) error {
	form, err := p.Values(when, values)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.prefix+"/formResponse", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("form: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", p.prefix+"/viewform")
	req.Header.Set("User-Agent", formUserAgent)
	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("form: post failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("form: post failed with status %s", res.Status)
	}
	return nil
}

// FormSink posts gas readings as [eco2, tvoc, current, voltage] and
// particulate readings as the 13 frame values.
type FormSink struct {
	poster *FormPoster
}

func NewFormSink(p *FormPoster) *FormSink {
	return &FormSink{poster: p}
}

func (s *FormSink) ReportGas(ctx context.Context, sample GasSample) error {
	return s.poster.Post(ctx, sample.Time, sample.Values())
}

func (s *FormSink) ReportParticulate(ctx context.Context, sample ParticulateSample) error {
	return s.poster.Post(ctx, sample.Time, sample.Reading[:])
}
