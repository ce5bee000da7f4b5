package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Price is a nightly room rate. JSON carries it as a quoted decimal string,
// Mongo stores it as Decimal128.
type Price struct {
	decimal.Decimal
}

func NewPrice(value string) (Price, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Price{}, fmt.Errorf("invalid price %q: %w", value, err)
	}
	return Price{Decimal: d}, nil
}

func PriceFromInt(value int64) Price {
	return Price{Decimal: decimal.NewFromInt(value)}
}

func (p Price) IsNegative() bool {
	return p.Decimal.IsNegative()
}

func (p Price) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(p.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode price: %w", err)
	}
	return bson.MarshalValue(d)
}

func (p *Price) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var d primitive.Decimal128
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&d); err != nil {
		return fmt.Errorf("failed to decode price: %w", err)
	}
	parsed, err := decimal.NewFromString(d.String())
	if err != nil {
		return fmt.Errorf("failed to decode price: %w", err)
	}
	p.Decimal = parsed
	return nil
}
