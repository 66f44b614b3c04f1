package database

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"safevoice/pkg/sealbox"

	"gorm.io/gorm/schema"
)

var (
	fieldBox     atomic.Pointer[sealbox.Box]
	registerOnce sync.Once
)

var errNoFieldKey = errors.New("field encryption key not configured")

// RegisterEncryption installs the "encrypted" gorm serializer. Call it before
// the first query so model schemas pick the serializer up.
func RegisterEncryption(box *sealbox.Box) {
	fieldBox.Store(box)
	registerOnce.Do(func() {
		schema.RegisterSerializer("encrypted", encryptedSerializer{})
	})
}

// encryptedSerializer seals string fields on write and opens them on read.
type encryptedSerializer struct{}

func (encryptedSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var sealed string
	switch v := dbValue.(type) {
	case nil:
	case []byte:
		sealed = string(v)
	case string:
		sealed = v
	default:
		return fmt.Errorf("encrypted field %s: unsupported db type %T", field.Name, dbValue)
	}

	var plain string
	if sealed != "" {
		box := fieldBox.Load()
		if box == nil {
			return errNoFieldKey
		}
		var err error
		if plain, err = box.Open(sealed); err != nil {
			return fmt.Errorf("encrypted field %s: %w", field.Name, err)
		}
	}
	field.ReflectValueOf(ctx, dst).SetString(plain)
	return nil
}

func (encryptedSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	plain, _ := fieldValue.(string)
	if plain == "" {
		return "", nil
	}
	box := fieldBox.Load()
	if box == nil {
		return nil, errNoFieldKey
	}
	return box.Seal(plain)
}
