package ntp

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var ErrShortPacket = errors.New("packet shorter than NTP header")

type Header struct {
	Leap    byte /* leap indicator */
	Version byte /* version number */
	Mode    Mode /* mode */
	NtpFieldsEncoded
}

type NtpFieldsEncoded struct {
	Stratum   byte             /* stratum */
	Poll      int8             /* poll interval */
	Precision int8             /* precision */
	Rootdelay ShortEncoded     /* root delay */
	Rootdisp  ShortEncoded     /* root dispersion */
	Refid     ShortEncoded     /* reference ID */
	Reftime   TimestampEncoded /* reference time */
	Org       TimestampEncoded /* origin timestamp */
	Rec       TimestampEncoded /* receive timestamp */
	Xmt       TimestampEncoded /* transmit timestamp */
}

func ModeOf(firstByte byte) Mode {
	return Mode(firstByte & 0b111)
}

func EncodeHeader(header Header) []byte {
	firstByte := (header.Leap << 6) | (header.Version << 3) | byte(header.Mode)

	var buffer bytes.Buffer
	buffer.Grow(HeaderLength)
	binary.Write(&buffer, binary.BigEndian, firstByte)
	binary.Write(&buffer, binary.BigEndian, &header.NtpFieldsEncoded)
	return buffer.Bytes()
}

// PutHeader overwrites the first HeaderLength bytes of encoded. Anything
// after the header is left alone.
func PutHeader(encoded []byte, header Header) error {
	if len(encoded) < HeaderLength {
		return ErrShortPacket
	}
	copy(encoded, EncodeHeader(header))
	return nil
}

func DecodeHeader(encoded []byte) (*Header, error) {
	if len(encoded) < HeaderLength {
		return nil, ErrShortPacket
	}

	reader := bytes.NewReader(encoded[:HeaderLength])
	firstByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	fieldsEncoded := NtpFieldsEncoded{}
	if err := binary.Read(reader, binary.BigEndian, &fieldsEncoded); err != nil {
		return nil, err
	}

	return &Header{
		Leap:             firstByte >> 6,
		Version:          (firstByte >> 3) & 0b111,
		Mode:             ModeOf(firstByte),
		NtpFieldsEncoded: fieldsEncoded,
	}, nil
}

// TransmitOf reads the transmit timestamp straight from an encoded header.
func TransmitOf(encoded []byte) TimestampEncoded {
	if len(encoded) < HeaderLength {
		return 0
	}
	return binary.BigEndian.Uint64(encoded[40:HeaderLength])
}
