package client

import (
	"github.com/go-faster/jx"

	"github.com/xenking/vendo-client/internal/domain/product"
	"github.com/xenking/vendo-client/internal/domain/user"
)

// Wire codec for the vending API, hand-rolled on jx. The server's field
// names (productName, amountAvailable, deposit) differ from the domain
// types, so every payload is mapped explicitly.

func encodeCredentials(c user.Credentials) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("username")
	e.Str(c.Username)
	e.FieldStart("password")
	e.Str(c.Password)
	e.ObjEnd()
	return e.Bytes()
}

func encodeDeposit(denomination int64) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("deposit")
	e.Int64(denomination)
	e.ObjEnd()
	return e.Bytes()
}

func encodeProductPayload(p product.Payload) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("productName")
	e.Str(p.Name)
	e.FieldStart("cost")
	e.Int64(p.Cost)
	e.FieldStart("amountAvailable")
	e.Int(p.Available)
	e.ObjEnd()
	return e.Bytes()
}

func encodeBuy(productID int64, amount int) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("productId")
	e.Int64(productID)
	e.FieldStart("amount")
	e.Int(amount)
	e.ObjEnd()
	return e.Bytes()
}

func decodeUser(d *jx.Decoder) (user.User, error) {
	var u user.User
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "username":
			s, err := d.Str()
			if err != nil {
				return err
			}
			u.Username = s
		case "role":
			s, err := d.Str()
			if err != nil {
				return err
			}
			u.Role = user.Role(s)
		case "deposit":
			n, err := d.Int64()
			if err != nil {
				return err
			}
			u.Deposit = n
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			n, err := d.Int64()
			if err != nil {
				return err
			}
			p.ID = n
		case "productName":
			s, err := d.Str()
			if err != nil {
				return err
			}
			p.Name = s
		case "cost":
			n, err := d.Int64()
			if err != nil {
				return err
			}
			p.Cost = n
		case "amountAvailable":
			n, err := d.Int()
			if err != nil {
				return err
			}
			p.Available = n
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func decodeProducts(d *jx.Decoder) ([]product.Product, error) {
	var products []product.Product
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}

func decodeBalance(d *jx.Decoder) (int64, error) {
	var balance int64
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "deposit" {
			return d.Skip()
		}
		n, err := d.Int64()
		if err != nil {
			return err
		}
		balance = n
		return nil
	}); err != nil {
		return 0, err
	}
	return balance, nil
}

func decodeChange(d *jx.Decoder) ([]int64, error) {
	change := []int64{}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "change" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			n, err := d.Int64()
			if err != nil {
				return err
			}
			change = append(change, n)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return change, nil
}

func decodeReceipt(d *jx.Decoder) (product.Receipt, error) {
	r := product.Receipt{Change: []int64{}}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "spent":
			n, err := d.Int64()
			if err != nil {
				return err
			}
			r.Spent = n
		case "productName":
			s, err := d.Str()
			if err != nil {
				return err
			}
			r.ProductName = s
		case "change":
			return d.Arr(func(d *jx.Decoder) error {
				n, err := d.Int64()
				if err != nil {
					return err
				}
				r.Change = append(r.Change, n)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return product.Receipt{}, err
	}
	return r, nil
}

// decodeMessage pulls the "message" field out of an error body. Bodies that
// are not valid JSON objects yield an empty string; the status code alone
// still classifies the failure.
func decodeMessage(data []byte) string {
	var msg string
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		msg = s
		return nil
	}); err != nil {
		return ""
	}
	return msg
}
