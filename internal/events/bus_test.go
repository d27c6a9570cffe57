// ABOUTME: Tests for the typed event bus.
// ABOUTME: Validates dispatch order, payload delivery, unsubscription, and the listener soft limit.

package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitDeliversPayload(t *testing.T) {
	bus := NewBus(nil)

	var got string
	sub := bus.Subscribe(KindDeleteConversation, func(e Event) {
		got = e.(DeleteConversation).ConversationID
	})
	defer sub.Close()

	bus.Emit(DeleteConversation{ConversationID: "conv-7"})
	assert.Equal(t, "conv-7", got)
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	sub := bus.Subscribe(KindDeleteConversation, func(Event) {
		calls++
	})

	bus.Emit(DeleteConversation{ConversationID: "conv-7"})
	require.Equal(t, 1, calls)

	sub.Close()
	bus.Emit(DeleteConversation{ConversationID: "conv-7"})
	assert.Equal(t, 1, calls, "closed subscription must not be invoked")
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus(nil)

	sub := bus.Subscribe(KindToggleSidebar, func(Event) {})
	sub.Close()
	sub.Close()

	assert.Equal(t, 0, bus.ListenerCount(KindToggleSidebar))
}

func TestBus_RegistrationOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		sub := bus.Subscribe(KindUpdateSidebar, func(Event) {
			order = append(order, i)
		})
		defer sub.Close()
	}

	bus.Emit(UpdateSidebar{})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_EmitOnlyMatchingKind(t *testing.T) {
	bus := NewBus(nil)

	settingsCalls := 0
	sidebarCalls := 0
	s1 := bus.Subscribe(KindToggleSettings, func(Event) { settingsCalls++ })
	defer s1.Close()
	s2 := bus.Subscribe(KindToggleSidebar, func(Event) { sidebarCalls++ })
	defer s2.Close()

	bus.Emit(ToggleSettings{})

	assert.Equal(t, 1, settingsCalls)
	assert.Equal(t, 0, sidebarCalls)
}

func TestBus_ChangeLLMModelPayload(t *testing.T) {
	bus := NewBus(nil)

	var got string
	sub := bus.Subscribe(KindChangeLLMModel, func(e Event) {
		got = e.(ChangeLLMModel).ModelID
	})
	defer sub.Close()

	bus.Emit(ChangeLLMModel{ModelID: "gemini-pro"})
	assert.Equal(t, "gemini-pro", got)
}

func TestBus_OverLimitStillDelivers(t *testing.T) {
	bus := NewBus(nil)
	bus.SetMaxListeners(2)

	calls := 0
	for i := 0; i < 5; i++ {
		sub := bus.Subscribe(KindShowChatMessages, func(Event) { calls++ })
		defer sub.Close()
	}

	bus.Emit(ShowChatMessages{})
	assert.Equal(t, 5, calls, "soft limit must not drop listeners")
}

func TestBus_ConcurrentSubscribeEmit(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	calls := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe(KindUpdateSidebar, func(Event) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			bus.Emit(UpdateSidebar{})
			sub.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.ListenerCount(KindUpdateSidebar))
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 10)
}
