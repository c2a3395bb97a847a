package classifier

import (
	"fmt"
	"strings"
)

// TypeCode is the normalized event-type key used by the rule logic. Its
// string value is the catalog name the rule resolves to, so lookups stay
// compatible with the name-keyed catalog while the rules themselves
// compare tagged constants.
type TypeCode string

const (
	CodeDriving        TypeCode = "Condução"
	CodeInterShiftRest TypeCode = "Interjornada"
	CodeFueling        TypeCode = "Abastecimento"
	CodeLoading        TypeCode = "Carga"
	CodeUnloading      TypeCode = "Descarga"
	CodeMeal           TypeCode = "Almoço"
	CodeSnack          TypeCode = "Café/Lanche"
	CodeMaintenance    TypeCode = "Manutenção"
	CodeChecklist      TypeCode = "Check List"
	CodeOther          TypeCode = "Outros"
)

// Location keyword sets: generic terms plus known brand/company names,
// matched as case-insensitive substrings of landmark + address.
var (
	fuelKeywords = []string{
		"posto", "combustivel", "shell", "petrobras", "ipiranga", "br",
		"ale", "texaco", "esso", "dom pedro", "gasolina", "diesel",
	}

	cargoKeywords = []string{
		"empresa", "industria", "fabrica", "deposito", "armazem",
		"terminal", "porto", "patio", "usina", "mineracao",
		"siderurgica", "metalurgica", "quimica", "cimento",
		"aperam", "csn", "vale", "olatrans",
	}

	workshopKeywords = []string{
		"oficina", "manutencao", "revisao", "mecanica", "borracharia",
		"eletrica", "funilaria", "pintura", "lavagem", "servicos",
	}
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// stopContext carries the attributes a stop rule can test.
type stopContext struct {
	durationMin int
	startHour   int
	location    string // lowercased landmark + address
	place       string // landmark or address, for observation text
}

// stopRule is one entry of the ordered decision table.
type stopRule struct {
	name    string
	matches func(c stopContext) bool
	resolve func(c stopContext) (TypeCode, string)
}

// stopRules is evaluated strictly in order and the first match wins.
// Duration bands overlap (a 40-minute stop at a fuel station satisfies
// both the fueling and snack bands), so a later rule must never be
// consulted once one has matched.
var stopRules = []stopRule{
	{
		name: "inter-shift rest",
		matches: func(c stopContext) bool {
			return c.durationMin >= 660
		},
		resolve: func(c stopContext) (TypeCode, string) {
			return CodeInterShiftRest, "Interjornada identificada automaticamente"
		},
	},
	{
		name: "fueling",
		matches: func(c stopContext) bool {
			return containsAny(c.location, fuelKeywords) && c.durationMin >= 10 && c.durationMin <= 45
		},
		resolve: func(c stopContext) (TypeCode, string) {
			return CodeFueling, fmt.Sprintf("Abastecimento em %s", c.place)
		},
	},
	{
		name: "loading/unloading",
		matches: func(c stopContext) bool {
			return containsAny(c.location, cargoKeywords) && c.durationMin >= 30 && c.durationMin <= 300
		},
		resolve: func(c stopContext) (TypeCode, string) {
			if c.startHour < 12 {
				return CodeLoading, fmt.Sprintf("Carga em %s", c.place)
			}
			return CodeUnloading, fmt.Sprintf("Descarga em %s", c.place)
		},
	},
	{
		name: "meal",
		matches: func(c stopContext) bool {
			if c.durationMin < 30 || c.durationMin > 120 {
				return false
			}
			return (c.startHour >= 11 && c.startHour <= 14) || (c.startHour >= 18 && c.startHour <= 21)
		},
		resolve: func(c stopContext) (TypeCode, string) {
			// Dinner reuses the lunch type; only the observation differs.
			if c.startHour >= 11 && c.startHour <= 14 {
				return CodeMeal, "Almoço identificado por horário"
			}
			return CodeMeal, "Jantar identificado por horário"
		},
	},
	{
		name: "snack",
		matches: func(c stopContext) bool {
			return c.durationMin >= 15 && c.durationMin <= 45
		},
		resolve: func(c stopContext) (TypeCode, string) {
			return CodeSnack, "Lanche/café identificado por duração"
		},
	},
	{
		name: "maintenance",
		matches: func(c stopContext) bool {
			return containsAny(c.location, workshopKeywords) && c.durationMin >= 60 && c.durationMin <= 480
		},
		resolve: func(c stopContext) (TypeCode, string) {
			return CodeMaintenance, fmt.Sprintf("Manutenção em %s", c.place)
		},
	},
	{
		name: "uncategorized",
		matches: func(c stopContext) bool {
			return true
		},
		resolve: func(c stopContext) (TypeCode, string) {
			return CodeOther, "Parada não categorizada automaticamente"
		},
	},
}

// classifyStop walks the decision table and returns the first match.
func classifyStop(c stopContext) (TypeCode, string) {
	for _, r := range stopRules {
		if r.matches(c) {
			return r.resolve(c)
		}
	}
	// The last table entry matches unconditionally.
	return CodeOther, "Parada não categorizada automaticamente"
}
