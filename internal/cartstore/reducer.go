package cartstore

// apply mutates state for one action and returns whether the state
// changed plus the domain events to emit. Caller holds the store lock.
func (s *Store) apply(action Action) (bool, []Event) {
	switch a := action.(type) {
	case HydrateState:
		return s.applyHydrate(a)
	case AddItem:
		return s.applyAdd(a)
	case RemoveItem:
		return s.applyRemove(a)
	case UpdateQuantity:
		return s.applyUpdateQuantity(a)
	case SetReducedMotion:
		if s.state.UI.ReducedMotion == a.Enabled {
			return false, nil
		}
		s.state.UI.ReducedMotion = a.Enabled
		return true, nil
	case SetSound:
		if s.state.UI.SoundEnabled == a.Enabled {
			return false, nil
		}
		s.state.UI.SoundEnabled = a.Enabled
		return true, nil
	case SetHaptics:
		if s.state.UI.HapticsEnabled == a.Enabled {
			return false, nil
		}
		s.state.UI.HapticsEnabled = a.Enabled
		return true, nil
	case SetIdle:
		if s.state.IsIdle == a.Idle {
			return false, nil
		}
		s.state.IsIdle = a.Idle
		if a.Idle {
			return true, []Event{s.event(EventCartIdle, CartIdlePayload{Idle: true})}
		}
		return true, nil
	case StartAddBurst:
		if s.state.IsAddBurstActive {
			return false, nil
		}
		s.state.IsAddBurstActive = true
		s.opts.Metrics.IncBurst()
		return true, []Event{s.event(EventAddBurstStarted, BurstPayload{})}
	case EndAddBurst:
		if !s.state.IsAddBurstActive {
			return false, nil
		}
		s.state.IsAddBurstActive = false
		return true, []Event{s.event(EventAddBurstEnded, BurstPayload{})}
	}
	return false, nil
}

func (s *Store) applyHydrate(a HydrateState) (bool, []Event) {
	items := make(map[int64]CartItem, len(a.Items))
	for _, item := range a.Items {
		if item.ID <= 0 || item.Quantity <= 0 {
			continue
		}
		if item.Quantity > s.opts.MaxQuantityPerItem {
			item.Quantity = s.opts.MaxQuantityPerItem
		}
		items[item.ID] = item
	}
	s.state.Items = items
	if a.UI != nil {
		s.state.UI = *a.UI
	}
	return true, nil
}

func (s *Store) applyAdd(a AddItem) (bool, []Event) {
	if a.ProductID <= 0 || a.Quantity <= 0 {
		return false, nil
	}
	item, exists := s.state.Items[a.ProductID]
	if exists {
		item.Quantity += a.Quantity
	} else {
		item = CartItem{ID: a.ProductID, Quantity: a.Quantity, AddedAt: s.opts.Now()}
	}
	if item.Quantity > s.opts.MaxQuantityPerItem {
		item.Quantity = s.opts.MaxQuantityPerItem
	}
	s.state.Items[a.ProductID] = item

	return true, []Event{s.event(EventAddToCart, AddToCartPayload{
		ProductID:     a.ProductID,
		Quantity:      a.Quantity,
		ItemQuantity:  item.Quantity,
		TotalQuantity: s.state.TotalQuantity(),
	})}
}

func (s *Store) applyRemove(a RemoveItem) (bool, []Event) {
	if _, exists := s.state.Items[a.ProductID]; !exists {
		return false, nil
	}
	delete(s.state.Items, a.ProductID)
	return true, []Event{s.event(EventRemoveFromCart, RemoveFromCartPayload{
		ProductID:         a.ProductID,
		RemainingQuantity: s.state.TotalQuantity(),
	})}
}

func (s *Store) applyUpdateQuantity(a UpdateQuantity) (bool, []Event) {
	item, exists := s.state.Items[a.ProductID]
	if !exists {
		return false, nil
	}
	if a.Quantity <= 0 {
		return s.applyRemove(RemoveItem{ProductID: a.ProductID})
	}
	newQuantity := a.Quantity
	if newQuantity > s.opts.MaxQuantityPerItem {
		newQuantity = s.opts.MaxQuantityPerItem
	}
	old := item.Quantity
	item.Quantity = newQuantity
	s.state.Items[a.ProductID] = item
	return true, []Event{s.event(EventUpdateQuantity, UpdateQuantityPayload{
		ProductID:   a.ProductID,
		OldQuantity: old,
		NewQuantity: newQuantity,
	})}
}

func (s *Store) event(typ EventType, payload any) Event {
	return Event{Type: typ, Timestamp: s.opts.Now(), Payload: payload}
}
