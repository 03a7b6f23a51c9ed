package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/task"
)

// jsonTime is a timestamp written as epoch milliseconds. It also reads RFC
// 3339 strings.
type jsonTime time.Time

func (t jsonTime) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, time.Time(t).UnixMilli(), 10), nil
}

func (t *jsonTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = jsonTime{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse time %q: %w", s, err)
		}
		*t = jsonTime(parsed)
	default:
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("parse time %s: %w", data, err)
		}
		*t = jsonTime(time.UnixMilli(ms))
	}
	return nil
}

type jsonTask struct {
	Name       string `json:"name"`
	Key        string `json:"key,omitempty"`
	Comment    string `json:"comment,omitempty"`
	ExternalID int64  `json:"externalId,omitempty"`

	LegacyComment    string `json:"clarityTaskComment,omitempty"`
	LegacyExternalID int64  `json:"clarityTaskIntId,omitempty"`
}

func (j jsonTask) task() task.Task {
	t := task.Task{Name: j.Name, Key: j.Key, Comment: j.Comment, ExternalID: j.ExternalID}
	if t.Comment == "" {
		t.Comment = j.LegacyComment
	}
	if t.ExternalID == 0 {
		t.ExternalID = j.LegacyExternalID
	}
	return t
}

type jsonSlice struct {
	Start jsonTime `json:"start"`
	End   jsonTime `json:"end"`
	Task  string   `json:"task"`
}

type jsonState struct {
	TimingInProgress    *bool             `json:"timingInProgress,omitempty"`
	LegacyTiming        *bool             `json:"timingInProgess,omitempty"`
	Tasks               []jsonTask        `json:"tasks"`
	Slices              []json.RawMessage `json:"slices"`
	CurrentTask         string            `json:"currentTask"`
	LastUserAction      jsonTime          `json:"lastUserAction"`
	LastTimedSlice      *int              `json:"lastTimedSlice"`
	LastInteractedTasks []jsonTask        `json:"lastInteractedTasks"`
}

// EncodeJSON writes snap in the JSON save format. Slices are written as
// {start, end, task} objects.
func EncodeJSON(w io.Writer, snap Snapshot) error {
	timing := snap.TimingInProgress
	cursor := snap.LastTimedSlice
	out := jsonState{
		TimingInProgress: &timing,
		Tasks:            make([]jsonTask, 0, len(snap.Tasks)),
		Slices:           make([]json.RawMessage, 0, len(snap.Slices)),
		CurrentTask:      snap.CurrentTask,
		LastUserAction:   jsonTime(snap.LastUserAction),
		LastTimedSlice:   &cursor,
	}
	for _, t := range snap.Tasks {
		out.Tasks = append(out.Tasks, jsonTask{Name: t.Name, Key: t.Key, Comment: t.Comment, ExternalID: t.ExternalID})
	}
	for _, rec := range snap.Slices {
		raw, err := json.Marshal(jsonSlice{Start: jsonTime(rec.Start), End: jsonTime(rec.End), Task: rec.Task})
		if err != nil {
			return fmt.Errorf("encode slice: %w", err)
		}
		out.Slices = append(out.Slices, raw)
	}
	for _, name := range snap.RecentTasks {
		out.LastInteractedTasks = append(out.LastInteractedTasks, jsonTask{Name: name})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return nil
}

// DecodeJSON reads a snapshot in either the current JSON format or the
// legacy one with "<start> - <end> <task>" slice strings. Slice entries that
// cannot be read are kept as empty records so cursor indices stay valid;
// Restore skips them. Legacy slice times are read in loc.
func DecodeJSON(r io.Reader, loc *time.Location) (Snapshot, error) {
	var in jsonState
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode json: %v", ErrLoad, err)
	}

	snap := Snapshot{
		TimingInProgress: true,
		CurrentTask:      in.CurrentTask,
		LastUserAction:   time.Time(in.LastUserAction),
		LastTimedSlice:   NoCursor,
	}
	switch {
	case in.TimingInProgress != nil:
		snap.TimingInProgress = *in.TimingInProgress
	case in.LegacyTiming != nil:
		snap.TimingInProgress = *in.LegacyTiming
	}
	if in.LastTimedSlice != nil {
		snap.LastTimedSlice = *in.LastTimedSlice
	}
	for _, t := range in.Tasks {
		snap.Tasks = append(snap.Tasks, t.task())
	}
	// Recently used tasks carry their full definition in the legacy format.
	for _, t := range in.LastInteractedTasks {
		snap.Tasks = append(snap.Tasks, t.task())
		snap.RecentTasks = append(snap.RecentTasks, t.Name)
	}
	for _, raw := range in.Slices {
		snap.Slices = append(snap.Slices, decodeSlice(raw, loc))
	}
	return snap, nil
}

func decodeSlice(raw json.RawMessage, loc *time.Location) SliceRecord {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var line string
		if err := json.Unmarshal(raw, &line); err != nil {
			return SliceRecord{}
		}
		iv, name, err := slice.Parse(line, loc)
		if err != nil {
			return SliceRecord{}
		}
		return SliceRecord{Start: iv.Start, End: iv.End, Task: name}
	}
	var js jsonSlice
	if err := json.Unmarshal(raw, &js); err != nil {
		return SliceRecord{}
	}
	return SliceRecord{Start: time.Time(js.Start), End: time.Time(js.End), Task: js.Task}
}
