package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/xhit/go-str2duration/v2"
)

// nodeSpec is the wire shape of the recognized task fields inside a parsed
// source node. Unrecognized keys are kept in Extra.
type nodeSpec struct {
	ID              string         `mapstructure:"id"`
	Name            string         `mapstructure:"name"`
	Description     string         `mapstructure:"description"`
	Needs           []string       `mapstructure:"needs"`
	Env             map[string]any `mapstructure:"env"`
	Timeout         any            `mapstructure:"timeout"`
	If              any            `mapstructure:"if"`
	ContinueOnError any            `mapstructure:"continue_on_error"`
	Extra           map[string]any `mapstructure:",remain"`
}

// NodeDecoder builds tasks from generic source nodes (decoded YAML/JSON
// maps). String conditions are compiled as CEL expressions, so a decoder
// without an evaluator only accepts literal booleans for if and
// continue_on_error.
type NodeDecoder struct {
	eval *CELEvaluator
}

func NewNodeDecoder(eval *CELEvaluator) *NodeDecoder {
	return &NodeDecoder{eval: eval}
}

func (d *NodeDecoder) Decode(node map[string]any) (*Task, error) {
	var spec nodeSpec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create node decoder: %w", err)
	}
	if err := decoder.Decode(node); err != nil {
		return nil, fmt.Errorf("failed to decode task node: %w", err)
	}
	t := &Task{
		ID:          spec.ID,
		Name:        spec.Name,
		Description: spec.Description,
		Needs:       spec.Needs,
		Extra:       spec.Extra,
	}
	if spec.Env != nil {
		t.Env = make(map[string]*string, len(spec.Env))
		for k, v := range spec.Env {
			if v == nil {
				t.Env[k] = nil
				continue
			}
			s := fmt.Sprint(v)
			t.Env[k] = &s
		}
	}
	if spec.Timeout != nil {
		timeout, err := ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		t.Timeout = Value(timeout)
	}
	if t.If, err = d.condition("if", spec.If); err != nil {
		return nil, err
	}
	if t.ContinueOnError, err = d.condition("continue_on_error", spec.ContinueOnError); err != nil {
		return nil, err
	}
	return t, nil
}

func (d *NodeDecoder) condition(field string, v any) (Attr[bool], error) {
	switch c := v.(type) {
	case nil:
		return Attr[bool]{}, nil
	case bool:
		return Value(c), nil
	case string:
		expr := strings.TrimSpace(c)
		if b, err := strconv.ParseBool(expr); err == nil {
			return Value(b), nil
		}
		if d.eval == nil {
			return Attr[bool]{}, fmt.Errorf("%s: expressions are not supported without an evaluator", field)
		}
		attr, err := d.eval.Condition(expr)
		if err != nil {
			return Attr[bool]{}, fmt.Errorf("%s: %w", field, err)
		}
		return attr, nil
	default:
		return Attr[bool]{}, fmt.Errorf("%s: expected boolean or expression, got %T", field, v)
	}
}

// ParseDuration accepts a duration string ("90s", "1h30m", "2d") or a number
// of seconds.
func ParseDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := str2duration.ParseDuration(strings.TrimSpace(d))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", d, err)
		}
		if parsed < 0 {
			return 0, fmt.Errorf("duration must not be negative: %s", d)
		}
		return parsed, nil
	case int:
		return seconds(float64(d))
	case int32:
		return seconds(float64(d))
	case int64:
		return seconds(float64(d))
	case uint:
		return seconds(float64(d))
	case uint32:
		return seconds(float64(d))
	case uint64:
		return seconds(float64(d))
	case float32:
		return seconds(float64(d))
	case float64:
		return seconds(d)
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

func seconds(s float64) (time.Duration, error) {
	if s < 0 {
		return 0, fmt.Errorf("duration must not be negative: %v", s)
	}
	return time.Duration(s * float64(time.Second)), nil
}
