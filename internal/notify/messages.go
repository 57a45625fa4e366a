package notify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Template is a title and body with {label} and {minutes} placeholders.
type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

func (t Template) render(label string, minutes int) (string, string) {
	r := strings.NewReplacer("{label}", label, "{minutes}", strconv.Itoa(minutes))
	return r.Replace(t.Title), r.Replace(t.Body)
}

// Messages is the reminder text catalog.
type Messages struct {
	LeadMinutes int      `yaml:"lead_minutes"`
	Advance     Template `yaml:"advance"`
	Urgent      Template `yaml:"urgent"`
	Test        Template `yaml:"test"`
}

var ErrInvalidMessages = errors.New("invalid message catalog")

// DefaultMessages returns the embedded catalog.
func DefaultMessages() *Messages {
	m, err := ParseMessages(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("embedded messages.yaml: %v", err))
	}
	return m
}

// ParseMessages parses a catalog. Fields missing from data keep the
// embedded defaults.
func ParseMessages(data []byte) (*Messages, error) {
	m := &Messages{}
	if len(defaultMessages) > 0 {
		if err := yaml.Unmarshal(defaultMessages, m); err != nil {
			return nil, err
		}
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessages, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadMessages reads a catalog override from path. An empty path yields the
// defaults.
func LoadMessages(path string) (*Messages, error) {
	if path == "" {
		return DefaultMessages(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages %s: %w", path, err)
	}
	return ParseMessages(data)
}

func (m *Messages) validate() error {
	if m.LeadMinutes < 0 || m.LeadMinutes > 180 {
		return fmt.Errorf("%w: lead_minutes %d out of [0, 180]", ErrInvalidMessages, m.LeadMinutes)
	}
	for name, t := range map[string]Template{"advance": m.Advance, "urgent": m.Urgent, "test": m.Test} {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("%w: %s.title is empty", ErrInvalidMessages, name)
		}
	}
	return nil
}
