// Package boardfile reads and writes YAML board files: a timezone, an
// optional window start and a list of schedule items. Board files seed the
// mock backend and feed the layout command.
package boardfile

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/schedule"
)

// File is the on-disk form of a board.
type File struct {
	Timezone    string  `yaml:"timezone"`
	WindowStart string  `yaml:"window_start,omitempty"`
	Items       []Entry `yaml:"items"`
}

// Entry is one schedule item. Start and End accept RFC 3339 timestamps,
// "YYYY-MM-DD HH:MM" local times or bare "YYYY-MM-DD" days; a bare start
// day means its first instant and a bare end day its last.
type Entry struct {
	ClientID     string   `yaml:"client_id,omitempty"`
	ServerID     string   `yaml:"server_id,omitempty"`
	Name         string   `yaml:"name,omitempty"`
	Subject      string   `yaml:"subject,omitempty"`
	Color        string   `yaml:"color,omitempty"`
	QuizID       string   `yaml:"quiz_id"`
	QuizRootID   string   `yaml:"quiz_root_id"`
	QuizVersion  int      `yaml:"quiz_version"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Attempts     int      `yaml:"attempts,omitempty"`
	ShowAnswers  bool     `yaml:"show_answers,omitempty"`
	Contribution *float64 `yaml:"contribution,omitempty"`
}

// Board is a parsed board file.
type Board struct {
	Location    *time.Location
	WindowStart daykey.Key // empty when the file names none
	Items       []schedule.Item
}

const localLayout = "2006-01-02 15:04"

// Load reads and parses the board file at path.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board file: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a board file. Items without a client id get a fresh one;
// every item is validated.
func Parse(data []byte) (*Board, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse board file: %w", err)
	}

	b := &Board{Location: time.UTC}
	if f.Timezone != "" {
		loc, err := daykey.LoadZone(f.Timezone)
		if err != nil {
			return nil, err
		}
		b.Location = loc
	}
	if f.WindowStart != "" {
		k, err := daykey.Parse(f.WindowStart)
		if err != nil {
			return nil, fmt.Errorf("window_start: %w", err)
		}
		b.WindowStart = k
	}

	for i, e := range f.Items {
		it, err := e.item(b.Location)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		b.Items = append(b.Items, it)
	}
	return b, nil
}

func (e Entry) item(loc *time.Location) (schedule.Item, error) {
	start, err := parseTime(e.Start, loc, false)
	if err != nil {
		return schedule.Item{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseTime(e.End, loc, true)
	if err != nil {
		return schedule.Item{}, fmt.Errorf("end: %w", err)
	}

	it := schedule.Item{
		ClientID:                e.ClientID,
		ServerID:                e.ServerID,
		QuizID:                  e.QuizID,
		QuizRootID:              e.QuizRootID,
		QuizVersion:             e.QuizVersion,
		StartDate:               start,
		EndDate:                 end,
		AttemptsAllowed:         e.Attempts,
		ShowAnswersAfterAttempt: e.ShowAnswers,
		Contribution:            e.Contribution,
		Name:                    e.Name,
		Subject:                 e.Subject,
		Color:                   e.Color,
	}
	if it.AttemptsAllowed == 0 {
		it.AttemptsAllowed = 1
	}
	if it.ClientID == "" {
		it.ClientID = schedule.NewClientID()
	}
	if err := schedule.Validate(it); err != nil {
		return schedule.Item{}, err
	}
	return it, nil
}

func parseTime(s string, loc *time.Location, end bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localLayout, s, loc); err == nil {
		return t, nil
	}
	k, err := daykey.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a timestamp or day", s)
	}
	if end {
		return daykey.EndOfDay(k, loc), nil
	}
	return daykey.StartOfDay(k, loc), nil
}

// Marshal encodes items as a board file in loc.
func Marshal(items []schedule.Item, loc *time.Location, windowStart daykey.Key) ([]byte, error) {
	f := File{Timezone: loc.String(), WindowStart: string(windowStart)}
	for _, it := range items {
		f.Items = append(f.Items, Entry{
			ClientID:     it.ClientID,
			ServerID:     it.ServerID,
			Name:         it.Name,
			Subject:      it.Subject,
			Color:        it.Color,
			QuizID:       it.QuizID,
			QuizRootID:   it.QuizRootID,
			QuizVersion:  it.QuizVersion,
			Start:        it.StartDate.In(loc).Format(time.RFC3339Nano),
			End:          it.EndDate.In(loc).Format(time.RFC3339Nano),
			Attempts:     it.AttemptsAllowed,
			ShowAnswers:  it.ShowAnswersAfterAttempt,
			Contribution: it.Contribution,
		})
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode board file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode board file: %w", err)
	}
	return buf.Bytes(), nil
}
