package skillgraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skillgraph-backend/internal/domain/graph"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func tupleValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("graphlabel", func(fl validator.FieldLevel) bool {
			return graph.ValidLabel(fl.Field().String())
		})
		_ = v.RegisterValidation("reltype", func(fl validator.FieldLevel) bool {
			return graph.ValidRelationType(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// normalizeTuple trims identifiers and upper-cases the relation type.
// Skills are left alone; they are normalized per name during the merge.
func normalizeTuple(t graph.Tuple) graph.Tuple {
	t.ID = strings.TrimSpace(t.ID)
	t.Kind = graph.EntityKind(strings.TrimSpace(string(t.Kind)))
	t.RelationType = graph.RelationType(strings.ToUpper(strings.TrimSpace(string(t.RelationType))))
	t.Source = strings.TrimSpace(t.Source)
	return t
}

// checkTuple returns an error wrapping graph.ErrMalformedTuple naming the offending fields.
func checkTuple(t graph.Tuple) error {
	err := tupleValidator().Struct(t)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", graph.ErrMalformedTuple, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: invalid %s", graph.ErrMalformedTuple, strings.Join(fields, ", "))
}
