package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

func sampleTasks() []taskgraph.TaskData {
	var teacherBusy availability.Grid
	teacherBusy.Block(0, 0)
	var classBusy availability.Grid
	classBusy.Block(4, 9)

	return []taskgraph.TaskData{
		{
			TaskID:              0,
			AssignmentID:        "a-1",
			ClassID:             "c-1",
			SubjectID:           "math",
			PeriodsPerWeek:      4,
			ShouldBeDoubled:     true,
			Session:             models.SessionMorning,
			GradeLevel:          10,
			TeacherID:           "t-1",
			TeacherAvailability: teacherBusy,
			ClassAvailability:   classBusy,
		},
		{
			TaskID:         1,
			AssignmentID:   "a-2",
			ClassID:        "c-2",
			SubjectID:      "art",
			PeriodsPerWeek: 1,
			Session:        models.SessionAfternoon,
			GradeLevel:     11,
			TeacherID:      "t-2",
		},
	}
}

func TestInputRoundTrip(t *testing.T) {
	tasks := sampleTasks()

	decoded, err := DecodeInput(EncodeInput(tasks))
	require.NoError(t, err)
	assert.Equal(t, tasks, decoded)
}

func TestDecodeInputSkipsUnknownFields(t *testing.T) {
	payload := EncodeInput(sampleTasks()[:1])
	payload = protowire.AppendTag(payload, 99, protowire.VarintType)
	payload = protowire.AppendVarint(payload, 7)

	decoded, err := DecodeInput(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "a-1", decoded[0].AssignmentID)
}

func TestDecodeInputPadsShortAvailability(t *testing.T) {
	var task []byte
	task = protowire.AppendTag(task, fieldTaskAssignmentID, protowire.BytesType)
	task = protowire.AppendString(task, "a-1")
	task = protowire.AppendTag(task, fieldTaskTeacherAvailability, protowire.BytesType)
	task = protowire.AppendString(task, "01")

	var payload []byte
	payload = protowire.AppendTag(payload, fieldInputTasks, protowire.BytesType)
	payload = protowire.AppendBytes(payload, task)

	decoded, err := DecodeInput(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].TeacherAvailability.Busy(0, 1))
	assert.False(t, decoded[0].TeacherAvailability.Busy(5, 9))
	assert.True(t, decoded[0].ClassAvailability.IsEmpty())
	assert.Equal(t, models.SessionMorning, decoded[0].Session)
}

func TestOutputRoundTrip(t *testing.T) {
	out := Output{
		Success: true,
		Message: "solved",
		Placements: Solution{
			{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
			{AssignmentID: "a-1", Index: 1}: {Day: models.Saturday, Session: models.SessionAfternoon, Period: 5},
		},
	}

	decoded, err := DecodeOutput(EncodeOutput(out))
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestDecodeOutputRejectsTruncatedPayload(t *testing.T) {
	payload := EncodeOutput(Output{Success: true, Message: "solved"})

	_, err := DecodeOutput(payload[:len(payload)-2])
	assert.Error(t, err)
}

func TestDecodeOutputRejectsDuplicateVariable(t *testing.T) {
	first := EncodeOutput(Output{Success: true, Placements: Solution{
		{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
	}})
	second := EncodeOutput(Output{Success: true, Placements: Solution{
		{AssignmentID: "a-1", Index: 0}: {Day: models.Tuesday, Session: models.SessionMorning, Period: 3},
	}})

	_, err := DecodeOutput(append(first, second...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a-1#0 placed more than once")
}

func TestDecodeOutputRejectsUnknownDay(t *testing.T) {
	var slot []byte
	slot = protowire.AppendTag(slot, fieldSlotDay, protowire.VarintType)
	slot = protowire.AppendVarint(slot, 9)

	var placement []byte
	placement = protowire.AppendTag(placement, fieldPlacementSlot, protowire.BytesType)
	placement = protowire.AppendBytes(placement, slot)

	var payload []byte
	payload = protowire.AppendTag(payload, fieldOutputPlacements, protowire.BytesType)
	payload = protowire.AppendBytes(payload, placement)

	_, err := DecodeOutput(payload)
	assert.Error(t, err)
}
