package spreadsheet

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	// numberTag accepts a signed decimal such as "-12", "3.5" or ".5"
	numberTag = "cell_number"
	// dateTag accepts MM/DD/YYYY or YYYY/MM/DD on a real calendar day
	dateTag = "datetime=01/02/2006|datetime=2006/01/02"
)

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// cellValidate is the validator instance for cell literals and config.
// initialized in init() with custom validators.
var cellValidate *validator.Validate

func init() {
	cellValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = cellValidate.RegisterValidation(numberTag, validateCellNumber)
}

// validateCellNumber validates that a string field is a signed decimal
func validateCellNumber(fl validator.FieldLevel) bool {
	return numberPattern.MatchString(fl.Field().String())
}

func isNumberLiteral(text string) bool {
	return cellValidate.Var(text, numberTag) == nil
}

func isDateLiteral(text string) bool {
	return cellValidate.Var(text, dateTag) == nil
}

// ValidateLiteral checks a literal write against the declared type. empty
// text always passes so a typed cell can be cleared.
func ValidateLiteral(addr CellAddress, declared DataType, text string) error {
	if text == "" {
		return nil
	}

	var tag string
	switch declared {
	case DataTypeNumber:
		tag = numberTag
	case DataTypeDate:
		tag = dateTag
	default:
		return nil
	}

	if err := cellValidate.Var(text, tag); err != nil {
		return NewEditError(EditKindValidation, addr.String(),
			fmt.Sprintf("%q is not a valid %s", text, declared), err)
	}
	return nil
}

// InferType classifies a literal for display: Number, Date or Text. empty
// text stays Auto.
func InferType(text string) DataType {
	switch {
	case text == "":
		return DataTypeAuto
	case isNumberLiteral(text):
		return DataTypeNumber
	case isDateLiteral(text):
		return DataTypeDate
	default:
		return DataTypeText
	}
}

// LiteralValue derives the stored scalar of a literal under a declared type,
// along with the type it displays as. Auto and Number yield float64 for
// numeric text; Text keeps numeric text as a string; dates keep their text.
func LiteralValue(declared DataType, text string) (Primitive, DataType) {
	if text == "" {
		return nil, DataTypeAuto
	}

	switch declared {
	case DataTypeText:
		return text, DataTypeText
	case DataTypeNumber:
		if num, err := strconv.ParseFloat(text, 64); err == nil && isNumberLiteral(text) {
			return num, DataTypeNumber
		}
		// written before the type was declared
		return text, DataTypeText
	case DataTypeDate:
		if isDateLiteral(text) {
			return text, DataTypeDate
		}
		return text, DataTypeText
	}

	inferred := InferType(text)
	if inferred == DataTypeNumber {
		num, err := strconv.ParseFloat(text, 64)
		if err == nil {
			return num, DataTypeNumber
		}
		return text, DataTypeText
	}
	return text, inferred
}
