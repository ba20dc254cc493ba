package shop

import "time"

//relmap:interface
type Named interface {
	Name() string
}

// Entity is the generic base of all shop classes.
type Entity[K comparable] struct {
	_       struct{} `mapping:"class,abstract"`
	Created time.Time
}

type Audit struct {
	_         struct{} `mapping:"mixin"`
	ChangedBy *string
}

type Customer struct {
	_ struct{} `mapping:"class,id=Customer,table=customers"`
	Entity[int64]
	Audit  `mapping:",mixin"`
	name   string   `mapping:"Name,maxlen=100"`
	Orders []*Order `mapping:",opposite=Customer,sort=Number desc"`
}

func (c *Customer) Name() string { return c.name }

type Order struct {
	_ struct{} `mapping:"class"`
	Entity[int64]
	Number   int32
	Customer *Customer `mapping:",mandatory,opposite=Orders"`
	total    float64
}
