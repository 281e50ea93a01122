package dialect

import (
	"fmt"
	"strings"
	"time"

	"github.com/syssam/veloxql/schema/field"

	"github.com/lib/pq"
)

// common holds the templates shared by every built-in dialect.
var common = map[string]string{
	"ToUpper/1":       "UPPER({0})",
	"ToLower/1":       "LOWER({0})",
	"Trim/1":          "TRIM({0})",
	"TrimStart/1":     "LTRIM({0})",
	"TrimEnd/1":       "RTRIM({0})",
	"Replace/3":       "REPLACE({0},{1},{2})",
	"IsNullOrEmpty/1": "({0} IS NULL OR {0}='')",
	"Abs/1":           "ABS({0})",
	"Floor/1":         "FLOOR({0})",
	"Round/1":         "ROUND({0})",
	"Round/2":         "ROUND({0},{1})",
	"Sqrt/1":          "SQRT({0})",
	"Sign/1":          "SIGN({0})",
	"Exp/1":           "EXP({0})",
}

func templates(overrides map[string]string) map[string]string {
	m := make(map[string]string, len(common)+len(overrides))
	for k, v := range common {
		m[k] = v
	}
	for k, v := range overrides {
		m[k] = v
	}
	return m
}

// NewMySQL returns the MySQL provider.
func NewMySQL() Provider {
	return &provider{
		name:  MySQL,
		quote: quoteWith("`", "`"),
		funcs: templates(map[string]string{
			"Length/1":     "CHAR_LENGTH({0})",
			"Substring/2":  "SUBSTRING({0},{1})",
			"Substring/3":  "SUBSTRING({0},{1},{2})",
			"IndexOf/2":    "LOCATE({1},{0})-1",
			"Ceiling/1":    "CEILING({0})",
			"Pow/2":        "POW({0},{1})",
			"Log/1":        "LOG({0})",
			"Log10/1":      "LOG10({0})",
			"Now/0":        "NOW()",
			"UtcNow/0":     "UTC_TIMESTAMP()",
			"Today/0":      "CURDATE()",
			"Date/1":       "DATE({0})",
			"Year/1":       "YEAR({0})",
			"Month/1":      "MONTH({0})",
			"Day/1":        "DAYOFMONTH({0})",
			"Hour/1":       "HOUR({0})",
			"Minute/1":     "MINUTE({0})",
			"Second/1":     "SECOND({0})",
			"DayOfWeek/1":  "DAYOFWEEK({0})-1",
			"DayOfYear/1":  "DAYOFYEAR({0})",
			"AddYears/2":   "DATE_ADD({0},INTERVAL {1} YEAR)",
			"AddMonths/2":  "DATE_ADD({0},INTERVAL {1} MONTH)",
			"AddDays/2":    "DATE_ADD({0},INTERVAL {1} DAY)",
			"AddHours/2":   "DATE_ADD({0},INTERVAL {1} HOUR)",
			"AddMinutes/2": "DATE_ADD({0},INTERVAL {1} MINUTE)",
			"AddSeconds/2": "DATE_ADD({0},INTERVAL {1} SECOND)",
		}),
		variadic: map[string]func(int) string{
			"Concat": func(argc int) string { return "CONCAT(" + joinArgs(argc, ",") + ")" },
		},
		casts: map[field.Type]string{
			field.TypeBool:    "SIGNED",
			field.TypeInt:     "SIGNED",
			field.TypeInt64:   "SIGNED",
			field.TypeFloat64: "DOUBLE",
			field.TypeDecimal: "DECIMAL(36,18)",
			field.TypeString:  "CHAR",
			field.TypeTime:    "DATETIME",
			field.TypeUUID:    "CHAR(36)",
			field.TypeBytes:   "BINARY",
			field.TypeJSON:    "JSON",
		},
		// MySQL has no OFFSET without LIMIT.
		paging:   limitOffset("18446744073709551615"),
		features: FeatureCTE | FeatureRecursiveCTE | FeatureRecursiveKeyword | FeatureUpsert,
		literals: LiteralStyle{
			True:        "1",
			False:       "0",
			TimeLayout:  "2006-01-02 15:04:05.000",
			QuoteString: quoteMySQL,
			FormatBytes: hexBytes("X'", "'"),
		},
		upsert: func(_, columns []string, quote func(string) string) string {
			sets := make([]string, len(columns))
			for i, c := range columns {
				sets[i] = fmt.Sprintf("%s=VALUES(%s)", quote(c), quote(c))
			}
			return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ",")
		},
	}
}

// quoteMySQL escapes backslashes as well as quotes, since MySQL treats the
// backslash as an escape character inside string literals by default.
func quoteMySQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return quoteSingle(s)
}

// NewPostgres returns the PostgreSQL provider.
func NewPostgres() Provider {
	return &provider{
		name:  Postgres,
		quote: pq.QuoteIdentifier,
		funcs: templates(map[string]string{
			"Length/1":     "LENGTH({0})",
			"Substring/2":  "SUBSTR({0},{1})",
			"Substring/3":  "SUBSTR({0},{1},{2})",
			"IndexOf/2":    "STRPOS({0},{1})-1",
			"Ceiling/1":    "CEIL({0})",
			"Pow/2":        "POWER({0},{1})",
			"Log/1":        "LN({0})",
			"Log10/1":      "LOG({0})",
			"Now/0":        "NOW()",
			"UtcNow/0":     "(NOW() AT TIME ZONE 'UTC')",
			"Today/0":      "CURRENT_DATE",
			"Date/1":       "CAST({0} AS DATE)",
			"Year/1":       "EXTRACT(YEAR FROM {0})",
			"Month/1":      "EXTRACT(MONTH FROM {0})",
			"Day/1":        "EXTRACT(DAY FROM {0})",
			"Hour/1":       "EXTRACT(HOUR FROM {0})",
			"Minute/1":     "EXTRACT(MINUTE FROM {0})",
			"Second/1":     "EXTRACT(SECOND FROM {0})",
			"DayOfWeek/1":  "EXTRACT(DOW FROM {0})",
			"DayOfYear/1":  "EXTRACT(DOY FROM {0})",
			"AddYears/2":   "{0}+MAKE_INTERVAL(years=>{1})",
			"AddMonths/2":  "{0}+MAKE_INTERVAL(months=>{1})",
			"AddDays/2":    "{0}+MAKE_INTERVAL(days=>{1})",
			"AddHours/2":   "{0}+MAKE_INTERVAL(hours=>{1})",
			"AddMinutes/2": "{0}+MAKE_INTERVAL(mins=>{1})",
			"AddSeconds/2": "{0}+MAKE_INTERVAL(secs=>{1})",
		}),
		variadic: map[string]func(int) string{
			"Concat": func(argc int) string { return joinArgs(argc, "||") },
		},
		casts: map[field.Type]string{
			field.TypeBool:    "BOOLEAN",
			field.TypeInt:     "INTEGER",
			field.TypeInt64:   "BIGINT",
			field.TypeFloat64: "DOUBLE PRECISION",
			field.TypeDecimal: "NUMERIC",
			field.TypeString:  "VARCHAR",
			field.TypeTime:    "TIMESTAMP",
			field.TypeUUID:    "UUID",
			field.TypeBytes:   "BYTEA",
			field.TypeJSON:    "JSONB",
		},
		paging:   limitOffset(""),
		features: FeatureCTE | FeatureRecursiveCTE | FeatureRecursiveKeyword | FeatureUpsert,
		literals: LiteralStyle{
			True:        "TRUE",
			False:       "FALSE",
			TimeLayout:  "2006-01-02 15:04:05.000000",
			QuoteString: pq.QuoteLiteral,
			FormatBytes: hexBytes(`'\x`, "'::bytea"),
		},
		upsert: onConflict,
	}
}

// NewSQLite returns the SQLite provider.
func NewSQLite() Provider {
	return &provider{
		name:  SQLite,
		quote: quoteWith(`"`, `"`),
		funcs: templates(map[string]string{
			"Length/1":     "LENGTH({0})",
			"Substring/2":  "SUBSTR({0},{1})",
			"Substring/3":  "SUBSTR({0},{1},{2})",
			"IndexOf/2":    "INSTR({0},{1})-1",
			"Ceiling/1":    "CEIL({0})",
			"Pow/2":        "POWER({0},{1})",
			"Log/1":        "LN({0})",
			"Log10/1":      "LOG10({0})",
			"Now/0":        "DATETIME('now','localtime')",
			"UtcNow/0":     "DATETIME('now')",
			"Today/0":      "DATE('now','localtime')",
			"Date/1":       "DATE({0})",
			"Year/1":       "CAST(STRFTIME('%Y',{0}) AS INTEGER)",
			"Month/1":      "CAST(STRFTIME('%m',{0}) AS INTEGER)",
			"Day/1":        "CAST(STRFTIME('%d',{0}) AS INTEGER)",
			"Hour/1":       "CAST(STRFTIME('%H',{0}) AS INTEGER)",
			"Minute/1":     "CAST(STRFTIME('%M',{0}) AS INTEGER)",
			"Second/1":     "CAST(STRFTIME('%S',{0}) AS INTEGER)",
			"DayOfWeek/1":  "CAST(STRFTIME('%w',{0}) AS INTEGER)",
			"DayOfYear/1":  "CAST(STRFTIME('%j',{0}) AS INTEGER)",
			"AddYears/2":   "DATETIME({0},({1})||' years')",
			"AddMonths/2":  "DATETIME({0},({1})||' months')",
			"AddDays/2":    "DATETIME({0},({1})||' days')",
			"AddHours/2":   "DATETIME({0},({1})||' hours')",
			"AddMinutes/2": "DATETIME({0},({1})||' minutes')",
			"AddSeconds/2": "DATETIME({0},({1})||' seconds')",
		}),
		variadic: map[string]func(int) string{
			"Concat": func(argc int) string { return joinArgs(argc, "||") },
		},
		casts: map[field.Type]string{
			field.TypeBool:    "INTEGER",
			field.TypeInt:     "INTEGER",
			field.TypeInt64:   "INTEGER",
			field.TypeFloat64: "REAL",
			field.TypeDecimal: "NUMERIC",
			field.TypeString:  "TEXT",
			field.TypeTime:    "TEXT",
			field.TypeUUID:    "TEXT",
			field.TypeBytes:   "BLOB",
			field.TypeJSON:    "TEXT",
		},
		paging:   limitOffset("-1"),
		features: FeatureCTE | FeatureRecursiveCTE | FeatureRecursiveKeyword | FeatureUpsert,
		literals: LiteralStyle{
			True:        "1",
			False:       "0",
			TimeLayout:  "2006-01-02 15:04:05.000",
			QuoteString: quoteSingle,
			FormatBytes: hexBytes("X'", "'"),
		},
		upsert: onConflict,
	}
}

// NewSQLServer returns the SQL Server provider.
func NewSQLServer() Provider {
	return &provider{
		name:  SQLServer,
		quote: quoteWith("[", "]"),
		funcs: templates(map[string]string{
			"Length/1":     "LEN({0})",
			"Substring/2":  "SUBSTRING({0},{1},LEN({0}))",
			"Substring/3":  "SUBSTRING({0},{1},{2})",
			"IndexOf/2":    "CHARINDEX({1},{0})-1",
			"Ceiling/1":    "CEILING({0})",
			"Pow/2":        "POWER({0},{1})",
			"Log/1":        "LOG({0})",
			"Log10/1":      "LOG10({0})",
			"Round/1":      "ROUND({0},0)",
			"Now/0":        "GETDATE()",
			"UtcNow/0":     "GETUTCDATE()",
			"Today/0":      "CONVERT(DATE,GETDATE())",
			"Date/1":       "CONVERT(DATE,{0})",
			"Year/1":       "DATEPART(YEAR,{0})",
			"Month/1":      "DATEPART(MONTH,{0})",
			"Day/1":        "DATEPART(DAY,{0})",
			"Hour/1":       "DATEPART(HOUR,{0})",
			"Minute/1":     "DATEPART(MINUTE,{0})",
			"Second/1":     "DATEPART(SECOND,{0})",
			"DayOfWeek/1":  "DATEPART(WEEKDAY,{0})-1",
			"DayOfYear/1":  "DATEPART(DAYOFYEAR,{0})",
			"AddYears/2":   "DATEADD(YEAR,{1},{0})",
			"AddMonths/2":  "DATEADD(MONTH,{1},{0})",
			"AddDays/2":    "DATEADD(DAY,{1},{0})",
			"AddHours/2":   "DATEADD(HOUR,{1},{0})",
			"AddMinutes/2": "DATEADD(MINUTE,{1},{0})",
			"AddSeconds/2": "DATEADD(SECOND,{1},{0})",
		}),
		variadic: map[string]func(int) string{
			"Concat": func(argc int) string { return joinArgs(argc, "+") },
		},
		casts: map[field.Type]string{
			field.TypeBool:    "BIT",
			field.TypeInt:     "INT",
			field.TypeInt64:   "BIGINT",
			field.TypeFloat64: "FLOAT",
			field.TypeDecimal: "DECIMAL(36,18)",
			field.TypeString:  "NVARCHAR(MAX)",
			field.TypeTime:    "DATETIME2",
			field.TypeUUID:    "UNIQUEIDENTIFIER",
			field.TypeBytes:   "VARBINARY(MAX)",
			field.TypeJSON:    "NVARCHAR(MAX)",
		},
		paging: func(skip, take *int) string {
			offset := 0
			if skip != nil {
				offset = *skip
			}
			if take == nil {
				return fmt.Sprintf("OFFSET %d ROWS", offset)
			}
			return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, *take)
		},
		features: FeatureCTE | FeatureRecursiveCTE | FeatureTop | FeatureOffsetRequiresOrder,
		literals: LiteralStyle{
			True:        "1",
			False:       "0",
			TimeLayout:  "2006-01-02 15:04:05.000",
			QuoteString: func(s string) string { return "N" + quoteSingle(s) },
			FormatBytes: hexBytes("0x", ""),
		},
	}
}

func onConflict(keys, columns []string, quote func(string) string) string {
	qk := make([]string, len(keys))
	for i, k := range keys {
		qk[i] = quote(k)
	}
	if len(columns) == 0 {
		return "ON CONFLICT (" + strings.Join(qk, ",") + ") DO NOTHING"
	}
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s=EXCLUDED.%s", quote(c), quote(c))
	}
	return "ON CONFLICT (" + strings.Join(qk, ",") + ") DO UPDATE SET " + strings.Join(sets, ",")
}

// FormatTime formats t with the literal style of the dialect, quoted.
func (s LiteralStyle) FormatTime(t time.Time) string {
	return s.QuoteString(t.Format(s.TimeLayout))
}
