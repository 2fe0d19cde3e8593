package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ms-booking/internal/models"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidPayload = errors.New("invalid ticket QR payload")

// Payload is what a scanned ticket QR decodes to.
type Payload struct {
	ID           string              `json:"id"`
	TicketNumber string              `json:"ticketNumber"`
	UserName     string              `json:"userName"`
	Date         string              `json:"date"`
	Time         string              `json:"time"`
	Status       models.TicketStatus `json:"status"`
	People       int                 `json:"people"`
	Discount     int64               `json:"discount"`
}

func PayloadFor(ticket models.Ticket) Payload {
	p := Payload{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		UserName:     ticket.UserName,
		Status:       ticket.Status,
		People:       ticket.NumberOfPeople,
		Discount:     ticket.DiscountApplied,
	}
	if ticket.TimeSlot != nil {
		p.Date = ticket.TimeSlot.Date
		p.Time = ticket.TimeSlot.Time
	}
	return p
}

type QRGenerator struct {
	secret []byte
	size   int
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:], size: 256}
}

// Token returns the encrypted, URL-safe string embedded in the QR image.
func (q *QRGenerator) Token(ticket models.Ticket) (string, error) {
	data, err := json.Marshal(PayloadFor(ticket))
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// GenerateEncryptedQR renders the ticket's encrypted token as a PNG.
func (q *QRGenerator) GenerateEncryptedQR(ticket models.Ticket) ([]byte, error) {
	token, err := q.Token(ticket)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(token, qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for ticket %s: %w", ticket.ID, err)
	}
	return png, nil
}

// DecryptQRData reverses Token.
func (q *QRGenerator) DecryptQRData(token string) (*Payload, error) {
	data, err := decryptAES(strings.TrimSpace(token), q.secret)
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: missing ticket id", ErrInvalidPayload)
	}
	return &p, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(token string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(ciphertext) <= aes.BlockSize {
		return nil, fmt.Errorf("%w: too short", ErrInvalidPayload)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])
	return data, nil
}
