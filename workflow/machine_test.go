package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

var allReplyTypes = []models.ReplyType{
	models.ReplyProgress,
	models.ReplyFollowUp,
	models.ReplyResolve,
	models.ReplyEscalation,
}

func TestEngineTransitions(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	tests := []struct {
		from State
		t    models.ReplyType
		want State
	}{
		{NoReply, models.ReplyProgress, RepliedOpen},
		{NoReply, models.ReplyFollowUp, RepliedOpen},
		{NoReply, models.ReplyResolve, RepliedTerminal},
		{NoReply, models.ReplyEscalation, RepliedTerminal},
		{RepliedOpen, models.ReplyProgress, RepliedOpen},
		{RepliedOpen, models.ReplyFollowUp, RepliedOpen},
		{RepliedOpen, models.ReplyResolve, RepliedTerminal},
		{RepliedOpen, models.ReplyEscalation, RepliedTerminal},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.t), func(t *testing.T) {
			got, err := engine.Next(tt.from, tt.t)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngineTerminalRejectsEverything(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	for _, rt := range allReplyTypes {
		got, err := engine.Next(RepliedTerminal, rt)
		assert.ErrorIs(t, err, apperrors.ErrRepliesClosed)
		assert.Equal(t, RepliedTerminal, got)
	}
}

func TestEngineRejectsUnknownType(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	_, err = engine.Next(NoReply, "praise")
	_, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, NoReply, StateOf(nil))
	assert.Equal(t, RepliedOpen, StateOf([]models.GovernmentReply{{ReplyType: models.ReplyFollowUp}}))
	assert.Equal(t, RepliedTerminal, StateOf([]models.GovernmentReply{
		{ReplyType: models.ReplyProgress},
		{ReplyType: models.ReplyEscalation},
	}))
}

func TestPermissionMatrix(t *testing.T) {
	tests := []struct {
		t           models.ReplyType
		commentable bool
		further     bool
		reason      bool
		followUp    bool
	}{
		{models.ReplyProgress, true, true, false, false},
		{models.ReplyFollowUp, false, true, false, true},
		{models.ReplyResolve, true, false, false, false},
		{models.ReplyEscalation, false, false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			assert.Equal(t, tt.commentable, CanReplyHaveComments(tt.t))
			assert.Equal(t, tt.further, AllowsFurtherReplies(tt.t))
			assert.Equal(t, tt.reason, RequiresReason(tt.t))
			assert.Equal(t, tt.followUp, AcceptsFollowUpResponse(tt.t))
		})
	}
}

func TestValidateReply(t *testing.T) {
	tests := []struct {
		name  string
		draft ReplyDraft
		field string
	}{
		{"progress ok", ReplyDraft{Content: "Investigating", ReplyType: models.ReplyProgress}, ""},
		{"blank content", ReplyDraft{Content: "   ", ReplyType: models.ReplyProgress}, "content"},
		{"escalation without reason", ReplyDraft{Content: "Escalating", ReplyType: models.ReplyEscalation, EscalationReason: " \t "}, "escalationReason"},
		{"escalation with reason", ReplyDraft{Content: "Escalating", ReplyType: models.ReplyEscalation, EscalationReason: "Needs district budget"}, ""},
		{"reason on resolve", ReplyDraft{Content: "Done", ReplyType: models.ReplyResolve, EscalationReason: "why"}, "escalationReason"},
		{"unknown type", ReplyDraft{Content: "x", ReplyType: "other"}, "replyType"},
		{"bad priority", ReplyDraft{Content: "x", ReplyType: models.ReplyProgress, Priority: "asap"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReply(tt.draft)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			ve, ok := apperrors.AsValidation(err)
			require.True(t, ok)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestThreadDepth(t *testing.T) {
	comments := []models.Comment{}
	parent := ""
	for depth := 0; depth <= MaxCommentDepth; depth++ {
		got, err := ThreadDepth(comments, parent)
		require.NoError(t, err)
		assert.Equal(t, depth, got)
		id := string(rune('a' + depth))
		comments = append(comments, models.Comment{ID: id, ParentID: parent, Depth: got})
		parent = id
	}

	_, err := ThreadDepth(comments, parent)
	assert.Error(t, err)

	_, err = ThreadDepth(comments, "missing")
	assert.Error(t, err)
}
