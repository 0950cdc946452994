package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if c.Sync.MaxWorkers < 1 || c.Sync.MaxWorkers > MaxWorkersLimit {
		return fmt.Errorf("sync.max_workers must be between 1 and %d, got %d", MaxWorkersLimit, c.Sync.MaxWorkers)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return errors.New("store.sqlite.path is required")
		}
	case "postgres":
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// fieldError renders a validator error with its YAML path, e.g.
// "source.transport failed oneof=http browser (got ftp)".
func fieldError(fe validator.FieldError) error {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}

	if fe.Tag() == "required" {
		return fmt.Errorf("%s is required", path)
	}
	if fe.Param() != "" {
		return fmt.Errorf("%s failed %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s failed %s (got %v)", path, fe.Tag(), fe.Value())
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
