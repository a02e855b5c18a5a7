package solver

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

// Field numbers of the engine exchange messages.
const (
	fieldInputTasks protowire.Number = 1

	fieldTaskID                  protowire.Number = 1
	fieldTaskAssignmentID        protowire.Number = 2
	fieldTaskClassID             protowire.Number = 3
	fieldTaskSubjectID           protowire.Number = 4
	fieldTaskPeriodsPerWeek      protowire.Number = 5
	fieldTaskShouldBeDoubled     protowire.Number = 6
	fieldTaskSession             protowire.Number = 7
	fieldTaskGradeLevel          protowire.Number = 8
	fieldTaskTeacherID           protowire.Number = 9
	fieldTaskTeacherAvailability protowire.Number = 10
	fieldTaskClassAvailability   protowire.Number = 11

	fieldOutputSuccess    protowire.Number = 1
	fieldOutputMessage    protowire.Number = 2
	fieldOutputPlacements protowire.Number = 3

	fieldPlacementVariable protowire.Number = 1
	fieldPlacementSlot     protowire.Number = 2

	fieldVariableAssignmentID protowire.Number = 1
	fieldVariableIndex        protowire.Number = 2

	fieldSlotDay     protowire.Number = 1
	fieldSlotSession protowire.Number = 2
	fieldSlotPeriod  protowire.Number = 3
)

// Output is the decoded engine result.
type Output struct {
	Success    bool
	Message    string
	Placements Solution
}

// EncodeInput serializes tasks as an EngineInput message.
func EncodeInput(tasks []taskgraph.TaskData) []byte {
	var b []byte
	for _, task := range tasks {
		b = protowire.AppendTag(b, fieldInputTasks, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeTask(task))
	}
	return b
}

func encodeTask(t taskgraph.TaskData) []byte {
	var b []byte
	b = appendInt(b, fieldTaskID, t.TaskID)
	b = appendString(b, fieldTaskAssignmentID, t.AssignmentID)
	b = appendString(b, fieldTaskClassID, t.ClassID)
	b = appendString(b, fieldTaskSubjectID, t.SubjectID)
	b = appendInt(b, fieldTaskPeriodsPerWeek, t.PeriodsPerWeek)
	b = appendBool(b, fieldTaskShouldBeDoubled, t.ShouldBeDoubled)
	b = appendInt(b, fieldTaskSession, sessionToWire(t.Session))
	b = appendInt(b, fieldTaskGradeLevel, t.GradeLevel)
	b = appendString(b, fieldTaskTeacherID, t.TeacherID)
	b = appendString(b, fieldTaskTeacherAvailability, t.TeacherAvailability.String())
	b = appendString(b, fieldTaskClassAvailability, t.ClassAvailability.String())
	return b
}

// DecodeInput parses an EngineInput message. Unknown fields are skipped.
func DecodeInput(data []byte) ([]taskgraph.TaskData, error) {
	var tasks []taskgraph.TaskData
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldInputTasks || typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		task, err := decodeTask(raw)
		if err != nil {
			return 0, err
		}
		tasks = append(tasks, task)
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode engine input: %w", err)
	}
	return tasks, nil
}

func decodeTask(data []byte) (taskgraph.TaskData, error) {
	var t taskgraph.TaskData
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			switch num {
			case fieldTaskID:
				t.TaskID = int(int32(v))
			case fieldTaskPeriodsPerWeek:
				t.PeriodsPerWeek = int(int32(v))
			case fieldTaskShouldBeDoubled:
				t.ShouldBeDoubled = protowire.DecodeBool(v)
			case fieldTaskSession:
				t.Session = sessionFromWire(int32(v))
			case fieldTaskGradeLevel:
				t.GradeLevel = int(int32(v))
			}
			return n, nil
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			switch num {
			case fieldTaskAssignmentID:
				t.AssignmentID = v
			case fieldTaskClassID:
				t.ClassID = v
			case fieldTaskSubjectID:
				t.SubjectID = v
			case fieldTaskTeacherID:
				t.TeacherID = v
			case fieldTaskTeacherAvailability:
				t.TeacherAvailability = availability.Parse(v)
			case fieldTaskClassAvailability:
				t.ClassAvailability = availability.Parse(v)
			}
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	if t.Session == "" {
		t.Session = models.SessionMorning
	}
	return t, err
}

// EncodeOutput serializes an EngineOutput message. Placements are written in
// sorted variable order so equal outputs encode identically.
func EncodeOutput(out Output) []byte {
	var b []byte
	b = appendBool(b, fieldOutputSuccess, out.Success)
	b = appendString(b, fieldOutputMessage, out.Message)
	for _, v := range out.Placements.SortedVariables() {
		slot := out.Placements[v]

		var variable []byte
		variable = appendString(variable, fieldVariableAssignmentID, v.AssignmentID)
		variable = appendInt(variable, fieldVariableIndex, v.Index)

		var s []byte
		s = appendInt(s, fieldSlotDay, slot.Day.Index())
		s = appendInt(s, fieldSlotSession, sessionToWire(slot.Session))
		s = appendInt(s, fieldSlotPeriod, slot.Period)

		var placement []byte
		placement = protowire.AppendTag(placement, fieldPlacementVariable, protowire.BytesType)
		placement = protowire.AppendBytes(placement, variable)
		placement = protowire.AppendTag(placement, fieldPlacementSlot, protowire.BytesType)
		placement = protowire.AppendBytes(placement, s)

		b = protowire.AppendTag(b, fieldOutputPlacements, protowire.BytesType)
		b = protowire.AppendBytes(b, placement)
	}
	return b
}

// DecodeOutput parses an EngineOutput message. Unknown fields are skipped.
func DecodeOutput(data []byte) (Output, error) {
	out := Output{Placements: Solution{}}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldOutputSuccess && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Success = protowire.DecodeBool(v)
			return n, nil
		case num == fieldOutputMessage && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Message = v
			return n, nil
		case num == fieldOutputPlacements && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			v, slot, err := decodePlacement(raw)
			if err != nil {
				return 0, err
			}
			if _, dup := out.Placements[v]; dup {
				return 0, fmt.Errorf("variable %s placed more than once", v)
			}
			out.Placements[v] = slot
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return Output{}, fmt.Errorf("decode engine output: %w", err)
	}
	return out, nil
}

func decodePlacement(data []byte) (Variable, Slot, error) {
	var (
		v    Variable
		slot = Slot{Day: models.Monday, Session: models.SessionMorning}
	)
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != fieldPlacementVariable && num != fieldPlacementSlot) {
			return skip(num, typ, b)
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		var err error
		if num == fieldPlacementVariable {
			v, err = decodeVariable(raw)
		} else {
			slot, err = decodeSlot(raw)
		}
		return n, err
	})
	return v, slot, err
}

func decodeVariable(data []byte) (Variable, error) {
	var v Variable
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldVariableAssignmentID && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			v.AssignmentID = s
			return n, nil
		case num == fieldVariableIndex && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			v.Index = int(int32(x))
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	return v, err
}

func decodeSlot(data []byte) (Slot, error) {
	slot := Slot{Day: models.Monday, Session: models.SessionMorning}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return skip(num, typ, b)
		}
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		switch num {
		case fieldSlotDay:
			day, ok := models.WeekdayAt(int(int32(x)))
			if !ok {
				return 0, fmt.Errorf("unknown day %d", int32(x))
			}
			slot.Day = day
		case fieldSlotSession:
			slot.Session = sessionFromWire(int32(x))
		case fieldSlotPeriod:
			slot.Period = int(int32(x))
		}
		return n, nil
	})
	return slot, err
}

// walk iterates over the fields of a message. fn consumes the field value and
// returns the number of bytes read.
func walk(data []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

// Zero values are omitted, matching proto3 encoders.
func appendInt(b []byte, num protowire.Number, v int) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(int32(v))))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func sessionToWire(s models.Session) int {
	if s == models.SessionAfternoon {
		return 1
	}
	return 0
}

func sessionFromWire(v int32) models.Session {
	if v == 1 {
		return models.SessionAfternoon
	}
	return models.SessionMorning
}
