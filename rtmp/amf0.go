package rtmp

// Minimal AMF0 codec: the subset the session driver needs (number,
// boolean, string, null, object/map, strict array) on encoding/binary.

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	amf0Number      = 0x00
	amf0Boolean     = 0x01
	amf0String      = 0x02
	amf0Object      = 0x03
	amf0Null        = 0x05
	amf0Undefined   = 0x06
	amf0ECMAArray   = 0x08
	amf0ObjectEnd   = 0x09
	amf0StrictArray = 0x0a
)

// AMFMap is an AMF0 object; key order is not preserved.
type AMFMap map[string]interface{}

func amf0EncodeVal(b []byte, v interface{}) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, amf0Null)
	case float64:
		b = append(b, amf0Number)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(x))
		return append(b, tmp[:]...)
	case int:
		return amf0EncodeVal(b, float64(x))
	case bool:
		b = append(b, amf0Boolean)
		if x {
			return append(b, 1)
		}
		return append(b, 0)
	case string:
		b = append(b, amf0String)
		return amf0EncodeStringBody(b, x)
	case AMFMap:
		b = append(b, amf0Object)
		for k, val := range x {
			b = amf0EncodeStringBody(b, k)
			b = amf0EncodeVal(b, val)
		}
		b = amf0EncodeStringBody(b, "")
		return append(b, amf0ObjectEnd)
	case []interface{}:
		b = append(b, amf0StrictArray)
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(len(x)))
		b = append(b, tmp[:]...)
		for _, val := range x {
			b = amf0EncodeVal(b, val)
		}
		return b
	default:
		return append(b, amf0Undefined)
	}
}

func amf0EncodeStringBody(b []byte, s string) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(s)))
	b = append(b, tmp[:]...)
	return append(b, s...)
}

// EncodeAMF0 serializes a sequence of AMF0 values, used for command and
// data messages (one command message = name, transaction id, object,
// then trailing params).
func EncodeAMF0(vals ...interface{}) []byte {
	var b []byte
	for _, v := range vals {
		b = amf0EncodeVal(b, v)
	}
	return b
}

// DecodeAMF0Val decodes a single AMF0 value, returning the value and the
// number of bytes consumed.
func DecodeAMF0Val(b []byte) (interface{}, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("amf0: empty buffer")
	}
	marker := b[0]
	switch marker {
	case amf0Number:
		if len(b) < 9 {
			return nil, 0, fmt.Errorf("amf0: short number")
		}
		bits := binary.BigEndian.Uint64(b[1:9])
		return math.Float64frombits(bits), 9, nil
	case amf0Boolean:
		if len(b) < 2 {
			return nil, 0, fmt.Errorf("amf0: short boolean")
		}
		return b[1] != 0, 2, nil
	case amf0String:
		s, n, err := amf0DecodeStringBody(b[1:])
		return s, n + 1, err
	case amf0Null, amf0Undefined:
		return nil, 1, nil
	case amf0Object, amf0ECMAArray:
		n := 1
		if marker == amf0ECMAArray {
			if len(b) < 5 {
				return nil, 0, fmt.Errorf("amf0: short ecma array")
			}
			n += 4
		}
		m := AMFMap{}
		for {
			if n+2 > len(b) {
				return nil, 0, fmt.Errorf("amf0: truncated object")
			}
			key, keyN, err := amf0DecodeStringBody(b[n:])
			if err != nil {
				return nil, 0, err
			}
			n += keyN
			if key == "" && n < len(b) && b[n] == amf0ObjectEnd {
				n++
				return m, n, nil
			}
			val, valN, err := DecodeAMF0Val(b[n:])
			if err != nil {
				return nil, 0, err
			}
			n += valN
			m[key] = val
		}
	case amf0StrictArray:
		if len(b) < 5 {
			return nil, 0, fmt.Errorf("amf0: short strict array")
		}
		count := binary.BigEndian.Uint32(b[1:5])
		n := 5
		arr := make([]interface{}, 0, count)
		for i := uint32(0); i < count; i++ {
			val, valN, err := DecodeAMF0Val(b[n:])
			if err != nil {
				return nil, 0, err
			}
			n += valN
			arr = append(arr, val)
		}
		return arr, n, nil
	default:
		return nil, 0, fmt.Errorf("amf0: unsupported marker 0x%02x", marker)
	}
}

func amf0DecodeStringBody(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, fmt.Errorf("amf0: short string length")
	}
	l := int(binary.BigEndian.Uint16(b[0:2]))
	if len(b) < 2+l {
		return "", 0, fmt.Errorf("amf0: short string body")
	}
	return string(b[2 : 2+l]), 2 + l, nil
}

// DecodeAMF0All decodes every AMF0 value packed back to back in b.
func DecodeAMF0All(b []byte) ([]interface{}, error) {
	var out []interface{}
	n := 0
	for n < len(b) {
		v, sz, err := DecodeAMF0Val(b[n:])
		if err != nil {
			return nil, err
		}
		n += sz
		out = append(out, v)
	}
	return out, nil
}

func asFloat64(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asAMFMap(v interface{}) AMFMap {
	m, _ := v.(AMFMap)
	return m
}
