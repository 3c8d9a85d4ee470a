package pagination

// Page is offset/limit paging shared by list endpoints and the index
// rebuild cursor. Offsets are stable because every paged query orders
// by an immutable key.
type Page struct {
	Offset int `form:"offset,default=0" validate:"gte=0"`
	Limit  int `form:"limit,default=50" validate:"gte=1,lte=500"`
}

func (p Page) Normalize() Page {
	out := p
	if out.Offset < 0 {
		out.Offset = 0
	}
	if out.Limit <= 0 {
		out.Limit = 50
	}
	if out.Limit > 500 {
		out.Limit = 500
	}
	return out
}

func (p Page) Next() Page {
	return Page{Offset: p.Offset + p.Limit, Limit: p.Limit}
}
