package ftl

// EraseEvent describes one block erase, delivered to the EraseObserver.
type EraseEvent struct {
	// Victim is the erased block.
	Victim int
	// Relocated is the number of valid pages the victim held when erased.
	Relocated int
	// InPlace is set when survivors were rewritten into the victim itself.
	InPlace bool
	// MinValid is the cached Y at the time of the erase.
	MinValid int
	// Buckets holds the size of every validity bucket after the erase.
	Buckets []int
	Stats   Stats
}

// EraseObserver is notified after every erase. It must not call back into the FTL.
type EraseObserver interface {
	OnErase(EraseEvent)
}

// EraseObserverFunc adapts a function to EraseObserver.
type EraseObserverFunc func(EraseEvent)

func (fn EraseObserverFunc) OnErase(ev EraseEvent) { fn(ev) }

type multiObserver []EraseObserver

func (m multiObserver) OnErase(ev EraseEvent) {
	for _, o := range m {
		o.OnErase(ev)
	}
}

// MultiObserver fans an event out to every non-nil observer.
func MultiObserver(observers ...EraseObserver) EraseObserver {
	m := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (f *FTL) notifyErase(victim, relocated int, inPlace bool) {
	if f.observer == nil {
		return
	}
	f.observer.OnErase(EraseEvent{
		Victim:    victim,
		Relocated: relocated,
		InPlace:   inPlace,
		MinValid:  f.index.Min(),
		Buckets:   f.index.Sizes(),
		Stats:     f.stats,
	})
}
