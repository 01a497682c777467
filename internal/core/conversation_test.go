package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsConfirmation(t *testing.T) {
	for _, in := range []string{"yes", "YES", " Yeah ", "okay", "ok", "Sure", "yup\n"} {
		require.True(t, IsConfirmation(in), in)
	}
	for _, in := range []string{"", "no", "yes please", "y", "okay!", "sure thing"} {
		require.False(t, IsConfirmation(in), in)
	}
}

func TestIsUnsatisfactory(t *testing.T) {
	require.True(t, IsUnsatisfactory("The text Does Not Contain Any Information about penguins at all."))
	require.True(t, IsUnsatisfactory("I don't know."))
	require.True(t, IsUnsatisfactory(""))
	require.True(t, IsUnsatisfactory("one two three four"))
	require.False(t, IsUnsatisfactory("one two three four five"))
}

func TestHasUsableContext(t *testing.T) {
	require.False(t, HasUsableContext(nil))
	require.False(t, HasUsableContext([]string{"", "  \n\t"}))
	require.True(t, HasUsableContext([]string{" ", "revenue grew"}))
}

func TestDecide(t *testing.T) {
	require.Equal(t, ActionRetrieve, Decide(Idle(), "yes"))
	require.Equal(t, ActionRetrieve, Decide(Idle(), "what is x?"))
	require.Equal(t, ActionGeneralKnowledge, Decide(AwaitingConfirmation("q"), "Yes"))
	require.Equal(t, ActionRetrieve, Decide(AwaitingConfirmation("q"), "another question"))
}

func TestTransitions(t *testing.T) {
	require.Equal(t, Idle(), AfterGeneralKnowledge(AwaitingConfirmation("q")))
	require.Equal(t, AwaitingConfirmation("new"), AfterNoContext(AwaitingConfirmation("old"), "new"))

	next, ok := AfterContextAnswer(AwaitingConfirmation("old"), "new", "A complete and helpful answer here.")
	require.True(t, ok)
	require.Equal(t, Idle(), next)

	next, ok = AfterContextAnswer(Idle(), "new", "No idea.")
	require.False(t, ok)
	require.Equal(t, AwaitingConfirmation("new"), next)
}

func TestZeroStateIsIdle(t *testing.T) {
	var s State
	require.Equal(t, Idle(), s)
	_, ok := s.Pending()
	require.False(t, ok)
	require.Equal(t, "idle", s.Phase.String())
	require.Equal(t, "awaiting_confirmation", PhaseAwaitingConfirmation.String())
}
