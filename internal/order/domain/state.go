package domain

// transitions lists every legal order transition. listo is only reached through
// readiness aggregation and finalizado only through bill settlement.
var transitions = map[State][]State{
	StatePendiente:     {StateEnPreparacion, StateCancelado},
	StateEnPreparacion: {StateListo, StateCancelado},
	StateListo:         {StateEntregado},
	StateEntregado:     {StateRecibido},
	StateRecibido:      {StateFinalizado},
}

func (s State) Valid() bool {
	switch s {
	case StatePendiente, StateEnPreparacion, StateListo, StateEntregado,
		StateRecibido, StateFinalizado, StateCancelado:
		return true
	default:
		return false
	}
}

func (s State) Terminal() bool {
	return s == StateFinalizado || s == StateCancelado
}

func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Automatic reports states no caller may request directly.
func Automatic(s State) bool {
	return s == StateListo || s == StateFinalizado
}

// BillableStates are the states whose orders are composed into a bill.
func BillableStates() []State {
	return []State{StateListo, StateEntregado, StateRecibido}
}

// KitchenQueueStates are the states shown on role-scoped pending lists.
func KitchenQueueStates() []State {
	return []State{StatePendiente, StateEnPreparacion}
}
