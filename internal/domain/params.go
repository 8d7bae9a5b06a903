package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrParamNotScalar — значение параметра не скаляр (вложенная коллекция).
var ErrParamNotScalar = errors.New("parameter value is not a scalar")

// Params — упорядоченный словарь параметров единицы работы.
//
// Порядок вставки сохраняется при сериализации в JSON и YAML:
// runner получает параметры в том порядке, в котором их записал оператор.
// Значения ограничены скалярами (string, bool, целые, float);
// вложенные объекты и списки отклоняются на границе.
type Params struct {
	keys   []string
	values map[string]any
}

// NewParams создаёт пустой Params.
func NewParams() Params {
	return Params{values: make(map[string]any)}
}

// Set добавляет или заменяет параметр. Порядок ключей определяется
// первым Set; повторный Set того же ключа порядок не меняет.
func (p *Params) Set(key string, value any) error {
	if !isScalar(value) {
		return fmt.Errorf("%w: %s=%T", ErrParamNotScalar, key, value)
	}
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return nil
}

// Get возвращает значение параметра.
func (p Params) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys возвращает ключи в порядке вставки. Возвращается копия.
func (p Params) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Len возвращает количество параметров.
func (p Params) Len() int {
	return len(p.keys)
}

// Clone возвращает независимую копию.
func (p Params) Clone() Params {
	out := Params{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]any, len(p.values)),
	}
	copy(out.keys, p.keys)
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON сериализует параметры в JSON-объект в порядке вставки.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON разбирает JSON-объект, сохраняя порядок ключей.
// Используется token-поток декодера: map[string]any порядок бы потерял.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parameters: expected JSON object, got %v", tok)
	}

	*p = NewParams()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := coerceScalar(raw)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		if err := p.Set(key, value); err != nil {
			return err
		}
	}

	// закрывающая '}'
	_, err = dec.Token()
	return err
}

// MarshalYAML сериализует параметры в YAML-маппинг в порядке вставки.
func (p Params) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range p.keys {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(key); err != nil {
			return nil, err
		}
		valNode := &yaml.Node{}
		if err := valNode.Encode(p.values[key]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML разбирает YAML-маппинг, сохраняя порядок ключей.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("parameters: expected mapping, got %v", node.Kind)
	}

	*p = NewParams()
	for i := 0; i < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var raw any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return err
		}
		value, err := coerceScalar(raw)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		if err := p.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// isScalar проверяет, что значение — допустимый скаляр.
func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}

// coerceScalar приводит декодированное значение к скаляру.
// json.Number превращается в int64, если значение целое, иначе в float64.
func coerceScalar(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad number %q", v.String())
		}
		return f, nil
	default:
		if !isScalar(raw) {
			return nil, ErrParamNotScalar
		}
		return raw, nil
	}
}
