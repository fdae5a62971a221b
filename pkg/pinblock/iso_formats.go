package pinblock

import (
	"fmt"
	"strings"
)

const (
	hexFill   = "0123456789ABCDEF"
	alphaFill = "ABCDEF"
)

// ISO Format 0: '0' + PIN length + PIN + 'F' fill, XOR '0000' + 12 PAN digits.
func encodeISO0(pin, pan string) (string, error) {
	pinField := fmt.Sprintf("0%X%s", len(pin), pin)
	pinField += strings.Repeat("F", blockHexLen-len(pinField))

	panField, err := accountField(pan)
	if err != nil {
		return "", err
	}

	return xorHexStrings(pinField, panField)
}

func decodeISO0(block, pan string) (string, error) {
	panField, err := accountField(pan)
	if err != nil {
		return "", err
	}
	field, err := xorHexStrings(block, panField)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPinBlock, err)
	}

	return decodePinField(field, '0', "F", "iso0")
}

// ISO Format 1: '1' + PIN length + PIN + random hex fill. No PAN.
func encodeISO1(pin string) (string, error) {
	pinField := fmt.Sprintf("1%X%s", len(pin), pin)
	fill, err := randomFill(hexFill, blockHexLen-len(pinField))
	if err != nil {
		return "", err
	}

	return pinField + fill, nil
}

func decodeISO1(block string) (string, error) {
	return decodePinField(block, '1', hexFill, "iso1")
}

// ISO Format 3: as Format 0 but the fill is random A-F.
func encodeISO3(pin, pan string) (string, error) {
	pinField := fmt.Sprintf("3%X%s", len(pin), pin)
	fill, err := randomFill(alphaFill, blockHexLen-len(pinField))
	if err != nil {
		return "", err
	}

	panField, err := accountField(pan)
	if err != nil {
		return "", err
	}

	return xorHexStrings(pinField+fill, panField)
}

func decodeISO3(block, pan string) (string, error) {
	panField, err := accountField(pan)
	if err != nil {
		return "", err
	}
	field, err := xorHexStrings(block, panField)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPinBlock, err)
	}

	return decodePinField(field, '3', alphaFill, "iso3")
}
