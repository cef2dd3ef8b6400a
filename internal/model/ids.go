package model

import "encoding/json"

// The remote API is backed by a document store and reports identifiers as
// "_id" on most payloads and "id" on a few.  The decoders below accept both.

func pickID(id, docID string) string {
	if id != "" {
		return id
	}
	return docID
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var p struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = User(p.plain)
	u.ID = pickID(u.ID, p.DocID)
	return nil
}

func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	var p struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = Order(p.plain)
	o.ID = pickID(o.ID, p.DocID)
	if o.UserID == "" && o.User != nil {
		o.UserID = o.User.ID
	}
	return nil
}

func (r *TopUpRequest) UnmarshalJSON(b []byte) error {
	type plain TopUpRequest
	var p struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = TopUpRequest(p.plain)
	r.ID = pickID(r.ID, p.DocID)
	if r.UserID == "" && r.User != nil {
		r.UserID = r.User.ID
	}
	return nil
}

// UnmarshalJSON accepts either a bare id string or a populated user
// document.
func (r *UserRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*r = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = UserRef(p.plain)
	r.ID = pickID(r.ID, p.DocID)
	return nil
}

func (s *Service) UnmarshalJSON(b []byte) error {
	type plain Service
	var p struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Service(p.plain)
	s.ID = pickID(s.ID, p.DocID)
	return nil
}
