package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
)

// Field is one canonical column and the header names recognized as it.
type Field struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms"`
}

// City maps a city name to its country.
type City struct {
	City    string `yaml:"city"`
	Country string `yaml:"country"`
}

// TextRule controls text cleaning. MinLength, MaxLength and AllowDigits are
// only applied when Enforce is set.
type TextRule struct {
	MinLength   int    `yaml:"min_length"`
	MaxLength   int    `yaml:"max_length"`
	AllowDigits bool   `yaml:"allow_digits"`
	Case        string `yaml:"case"` // lower, upper, title or none
	Enforce     bool   `yaml:"enforce"`
}

// NumberRule controls numeric coercion.
type NumberRule struct {
	Min      float64 `yaml:"min_value"`
	Max      float64 `yaml:"max_value"`
	Decimals int     `yaml:"decimals"`
}

// DateRule lists accepted date layouts (Go reference layouts) and the valid
// range. The range is only checked when EnforceRange is set.
type DateRule struct {
	Formats      []string `yaml:"formats"`
	RangeMin     string   `yaml:"range_min"`
	RangeMax     string   `yaml:"range_max"`
	EnforceRange bool     `yaml:"enforce_range"`
}

// Rules groups the per-kind cleaning rules.
type Rules struct {
	Text   TextRule   `yaml:"text"`
	Number NumberRule `yaml:"number"`
	Date   DateRule   `yaml:"date"`
}

// Config is the full cleaning configuration. Treat it as immutable once it
// has been handed to a pipeline.
type Config struct {
	Schema         []Field  `yaml:"schema"`
	Cities         []City   `yaml:"cities"`
	Rules          Rules    `yaml:"rules"`
	PreferredOrder []string `yaml:"preferred_order"`
	NumericColumns []string `yaml:"numeric_columns"`

	// RepairCountry is the country written by the shifted-layout repair.
	RepairCountry string `yaml:"repair_country"`
	// UnknownCountry is written when a city cannot be resolved.
	UnknownCountry string `yaml:"unknown_country"`

	SampleSize  int    `yaml:"sample_size"`
	SampleSeed  uint64 `yaml:"sample_seed"`
	PreviewRows int    `yaml:"preview_rows"`
	DetectRows  int    `yaml:"detect_rows"`
}

// Canonical output column names.
const (
	FieldDate        = "fecha"
	FieldProduct     = "producto"
	FieldProductType = "tipo_producto"
	FieldQuantity    = "cantidad"
	FieldUnitPrice   = "precio_unitario"
	FieldTotal       = "total_ventas"
	FieldSaleType    = "tipo_venta"
	FieldCustomer    = "tipo_cliente"
	FieldDiscount    = "descuento"
	FieldShipping    = "costo_envio"
	FieldCity        = "ciudad"
	FieldCountry     = "pais"
	FieldRegion      = "region"
	FieldCustomerID  = "cliente_id"
	FieldProductID   = "producto_id"
)

// Default returns the built-in configuration for Spanish/English sales exports.
func Default() Config {
	return Config{
		Schema: []Field{
			{FieldDate, []string{"fecha", "date", "fecha_venta", "fecha_compra", "timestamp"}},
			{FieldProduct, []string{"producto", "product", "item", "articulo", "descripcion"}},
			{FieldProductType, []string{"tipo_producto", "categoria", "categoria_producto", "tipo", "category"}},
			{FieldQuantity, []string{"cantidad", "qty", "quantity", "unidades", "units"}},
			{FieldUnitPrice, []string{"precio_unitario", "precio", "price", "unit_price", "precio_unidad"}},
			{FieldTotal, []string{"total_ventas", "venta_total", "total", "amount", "monto_total", "importe"}},
			{FieldSaleType, []string{"tipo_venta", "canal_venta", "channel", "venta_tipo", "sales_channel"}},
			{FieldCustomer, []string{"tipo_cliente", "cliente_tipo", "customer_type", "segmento_cliente"}},
			{FieldDiscount, []string{"descuento", "discount", "descuento_porcentaje", "discount_percent"}},
			{FieldShipping, []string{"costo_envio", "shipping_cost", "costo_transporte", "envio_costo"}},
			{FieldCity, []string{"ciudad", "city", "localidad", "municipio"}},
			{FieldCountry, []string{"pais", "country", "paises", "nation"}},
			{FieldRegion, []string{"region", "state", "estado", "provincia"}},
			{FieldCustomerID, []string{"cliente_id", "customer_id", "id_cliente", "client_id"}},
			{FieldProductID, []string{"producto_id", "product_id", "id_producto", "sku"}},
		},
		Cities: DefaultCities(),
		Rules: Rules{
			Text: TextRule{
				MinLength:   1,
				MaxLength:   100,
				AllowDigits: false,
				Case:        "title",
			},
			Number: NumberRule{
				Min:      0,
				Max:      1000000,
				Decimals: 2,
			},
			Date: DateRule{
				Formats:  []string{"2006-01-02", "02/01/2006", "01/02/2006", "2006-01-02 15:04:05"},
				RangeMin: "2020-01-01",
				RangeMax: "2025-12-31",
			},
		},
		PreferredOrder: []string{
			FieldDate, FieldProduct, FieldProductType, FieldQuantity, FieldUnitPrice,
			FieldCity, FieldCountry, FieldSaleType, FieldCustomer, FieldDiscount, FieldShipping,
		},
		NumericColumns: []string{FieldQuantity, FieldUnitPrice, FieldDiscount, FieldShipping, FieldTotal},
		RepairCountry:  "Colombia",
		UnknownCountry: "Desconocido",
		SampleSize:     1000,
		SampleSeed:     42,
		PreviewRows:    3,
		DetectRows:     100,
	}
}

// DefaultCities is the built-in city → country table. Some names appear
// under two countries (valencia, cordoba, trujillo, santiago); see geo.New
// for how the duplicates are resolved.
func DefaultCities() []City {
	return []City{
		{"bogota", "Colombia"}, {"medellin", "Colombia"}, {"cali", "Colombia"},
		{"barranquilla", "Colombia"}, {"cartagena", "Colombia"}, {"cucuta", "Colombia"},
		{"bucaramanga", "Colombia"}, {"pereira", "Colombia"}, {"santa marta", "Colombia"},
		{"ibague", "Colombia"}, {"past", "Colombia"}, {"manizales", "Colombia"},
		{"monteria", "Colombia"}, {"neiva", "Colombia"}, {"villavicencio", "Colombia"},
		{"valledupar", "Colombia"}, {"armenia", "Colombia"}, {"sincelejo", "Colombia"},
		{"popayan", "Colombia"}, {"itagui", "Colombia"}, {"santiago", "Colombia"},
		{"cordoba", "Colombia"}, {"trujillo", "Colombia"}, {"valencia", "Colombia"},
		{"new york", "Estados Unidos"}, {"miami", "Estados Unidos"}, {"los angeles", "Estados Unidos"},
		{"chicago", "Estados Unidos"}, {"houston", "Estados Unidos"},
		{"madrid", "España"}, {"barcelona", "España"}, {"valencia", "España"},
		{"ciudad de mexico", "México"}, {"guadalajara", "México"}, {"monterrey", "México"},
		{"buenos aires", "Argentina"}, {"cordoba", "Argentina"}, {"rosario", "Argentina"},
		{"sao paulo", "Brasil"}, {"rio de janeiro", "Brasil"}, {"brasilia", "Brasil"},
		{"lima", "Perú"}, {"arequipa", "Perú"}, {"trujillo", "Perú"},
		{"santiago", "Chile"}, {"valparaiso", "Chile"}, {"concepcion", "Chile"},
	}
}

// Validate reports every inconsistency in cfg, wrapped in
// internalerr.ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error

	seen := make(map[string]struct{}, len(c.Schema))
	for i, f := range c.Schema {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("schema[%d]: empty field name", i))
			continue
		}
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("schema[%d]: duplicate field %q", i, f.Name))
		}
		seen[f.Name] = struct{}{}
	}

	for i, city := range c.Cities {
		if city.City == "" || city.Country == "" {
			errs = append(errs, fmt.Errorf("cities[%d]: city and country are required", i))
		}
	}

	n := c.Rules.Number
	if n.Min > n.Max {
		errs = append(errs, fmt.Errorf("rules.number: min_value %v > max_value %v", n.Min, n.Max))
	}
	if n.Decimals < 0 {
		errs = append(errs, fmt.Errorf("rules.number: negative decimals %d", n.Decimals))
	}

	switch c.Rules.Text.Case {
	case "", "none", "lower", "upper", "title":
	default:
		errs = append(errs, fmt.Errorf("rules.text: unknown case policy %q", c.Rules.Text.Case))
	}
	if tr := c.Rules.Text; tr.Enforce && tr.MaxLength > 0 && tr.MinLength > tr.MaxLength {
		errs = append(errs, fmt.Errorf("rules.text: min_length %d > max_length %d", tr.MinLength, tr.MaxLength))
	}

	if _, _, err := c.Rules.Date.Range(); err != nil {
		errs = append(errs, err)
	}

	if c.SampleSize <= 0 {
		errs = append(errs, fmt.Errorf("sample_size must be positive, got %d", c.SampleSize))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, errors.Join(errs...))
}

// Range parses the configured date range. Zero times mean unbounded.
func (d DateRule) Range() (time.Time, time.Time, error) {
	var lo, hi time.Time
	var err error
	if d.RangeMin != "" {
		if lo, err = time.Parse(time.DateOnly, d.RangeMin); err != nil {
			return lo, hi, fmt.Errorf("rules.date: range_min: %w", err)
		}
	}
	if d.RangeMax != "" {
		if hi, err = time.Parse(time.DateOnly, d.RangeMax); err != nil {
			return lo, hi, fmt.Errorf("rules.date: range_max: %w", err)
		}
	}
	if !lo.IsZero() && !hi.IsZero() && lo.After(hi) {
		return lo, hi, fmt.Errorf("rules.date: range_min %s after range_max %s", d.RangeMin, d.RangeMax)
	}
	return lo, hi, nil
}

// Parse decodes YAML on top of Default(). Keys absent from data keep their
// default values; unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// CityTable is the on-disk format of a standalone city list.
type CityTable struct {
	Cities []City `yaml:"cities"`
}

// LoadCities reads a YAML city list.
func LoadCities(path string) ([]City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ct CityTable
	if err := yaml.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	return ct.Cities, nil
}

// Marshal renders cfg as YAML, e.g. to dump the effective configuration.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// ColumnMap is the on-disk format of a user-supplied column mapping.
type ColumnMap struct {
	Columns map[string]string `yaml:"columns"` // input name → output name
}

// LoadMapping reads a YAML column mapping.
func LoadMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cm ColumnMap
	if err := yaml.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	if len(cm.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s: no columns", internalerr.ErrInvalidConfig, path)
	}
	return cm.Columns, nil
}
