package cart

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type updateQuantityRequest struct {
	// Zero removes the item, so the field is a pointer to distinguish
	// "0" from "absent".
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type prefsRequest struct {
	ReducedMotion  *bool `json:"reduced_motion"`
	SoundEnabled   *bool `json:"sound_enabled"`
	HapticsEnabled *bool `json:"haptics_enabled"`
}

type toggleRequest struct {
	Open *bool `json:"open" validate:"required"`
}

type hoverRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
}
