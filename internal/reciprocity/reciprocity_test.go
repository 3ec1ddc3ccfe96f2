package reciprocity

import (
	"testing"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/stretchr/testify/assert"
)

func msg(role conversation.Role, content string) conversation.Message {
	return conversation.Message{Role: role, Content: content}
}

func TestCalculate_EvenConversation(t *testing.T) {
	msgs := []conversation.Message{
		msg(conversation.RoleSelf, "how are you?"),
		msg(conversation.RoleOther, "fine, you???"),
		msg(conversation.RoleSelf, "I work nights"),
		msg(conversation.RoleOther, "I live nearby"),
	}

	m := Calculate(msgs)

	assert.Equal(t, 1, m.QuestionsBySelf)
	assert.Equal(t, 1, m.QuestionsByOther)
	assert.Equal(t, 1, m.InfoSharedBySelf)
	assert.Equal(t, 1, m.InfoSharedByOther)
	assert.Equal(t, m.AvgLenSelf, m.AvgLenOther)
	assert.Equal(t, 100, m.BalanceScore)
}

func TestCalculate_OneSided(t *testing.T) {
	msgs := []conversation.Message{
		msg(conversation.RoleOther, "what's your address? where do you work? who do you live with?"),
		msg(conversation.RoleSelf, "ok"),
	}

	m := Calculate(msgs)

	assert.Equal(t, 0, m.QuestionsBySelf)
	assert.Equal(t, 1, m.QuestionsByOther)
	// questions deviate 50, disclosures 0 (none), length close to 50
	assert.Less(t, m.BalanceScore, 70)
	assert.GreaterOrEqual(t, m.BalanceScore, 0)
}

func TestCalculate_Empty(t *testing.T) {
	m := Calculate(nil)
	assert.Equal(t, 100, m.BalanceScore)
	assert.Zero(t, m.AvgLenSelf)
	assert.Zero(t, m.AvgLenOther)
}

func TestCalculate_OnlyOtherSpeaks(t *testing.T) {
	m := Calculate([]conversation.Message{
		msg(conversation.RoleOther, "I'm here?"),
	})
	// every metric is entirely one-sided
	assert.Equal(t, 50, m.BalanceScore)
}

func TestCalculate_RuneLength(t *testing.T) {
	m := Calculate([]conversation.Message{
		msg(conversation.RoleSelf, "héllo"),
		msg(conversation.RoleOther, "hello"),
	})
	assert.Equal(t, 5.0, m.AvgLenSelf)
	assert.Equal(t, 100, m.BalanceScore)
}

func TestDeviation(t *testing.T) {
	tests := []struct {
		self, other, want float64
	}{
		{0, 0, 0},
		{1, 1, 0},
		{1, 0, 50},
		{0, 3, 50},
		{3, 1, 25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, deviation(tt.self, tt.other), 1e-9)
	}
}

func TestDiscloses(t *testing.T) {
	assert.True(t, Discloses("My sister is visiting"))
	assert.True(t, Discloses("i'm tired"))
	assert.False(t, Discloses("what time is it"))
	assert.False(t, Discloses("mystery novel"))
}
