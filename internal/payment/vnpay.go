package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/config"
	"github.com/minhngo-dev/storefront-checkout/internal/entities"
)

const (
	version    = "2.1.0"
	currency   = "VND"
	dateLayout = "20060102150405"

	// SuccessCode is the gateway's "success" sentinel. A payment counts as
	// successful only when BOTH vnp_ResponseCode and vnp_TransactionStatus
	// equal it, the top-level code alone can be misleading.
	SuccessCode = "00"
)

var ErrInvalidSignature = errors.New("invalid gateway signature")

// gateway pay dates are local Vietnam time
var payDateZone = time.FixedZone("ICT", 7*60*60)

type Gateway struct {
	baseURL    string
	tmnCode    string
	hashSecret string
	returnURL  string
}

func NewGateway(cfg config.VNPay) *Gateway {
	return &Gateway{
		baseURL:    cfg.BaseURL,
		tmnCode:    cfg.TmnCode,
		hashSecret: cfg.HashSecret,
		returnURL:  cfg.ReturnURL,
	}
}

// BuildPaymentURL produces the redirect the customer is sent to. The amount
// travels in the gateway's minor-unit encoding (x100) and the whole sorted
// query is signed with HMAC-SHA512.
func (g *Gateway) BuildPaymentURL(order entities.Order, clientIP string, now time.Time) string {
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.tmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(order.Total*100, 10))
	params.Set("vnp_CreateDate", now.In(payDateZone).Format(dateLayout))
	params.Set("vnp_CurrCode", currency)
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderInfo", "Thanh toan don hang "+order.ID)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_ReturnUrl", g.returnURL)
	params.Set("vnp_TxnRef", order.ID)

	signed := encodeSorted(params)
	signature := g.sign(signed)

	return g.baseURL + "?" + signed + "&vnp_SecureHash=" + signature
}

// Callback is the set of query parameters the gateway delivers on the return
// redirect.
type Callback struct {
	ResponseCode      string
	TransactionStatus string
	TxnRef            string
	Amount            int64
	OrderInfo         string
	TransactionNo     string
	PayDate           string
	SecureHash        string
}

// ParseCallback reads and authenticates the return-redirect parameters. A
// bad signature means the callback is rejected outright, it is not a payment
// failure.
func (g *Gateway) ParseCallback(values url.Values) (Callback, error) {
	cb := Callback{
		ResponseCode:      values.Get("vnp_ResponseCode"),
		TransactionStatus: values.Get("vnp_TransactionStatus"),
		TxnRef:            values.Get("vnp_TxnRef"),
		OrderInfo:         values.Get("vnp_OrderInfo"),
		TransactionNo:     values.Get("vnp_TransactionNo"),
		PayDate:           values.Get("vnp_PayDate"),
		SecureHash:        values.Get("vnp_SecureHash"),
	}

	if raw := values.Get("vnp_Amount"); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Callback{}, fmt.Errorf("failed to parse vnp_Amount %q: %w", raw, err)
		}
		cb.Amount = amount
	}

	signable := url.Values{}
	for key, vals := range values {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		for _, v := range vals {
			signable.Add(key, v)
		}
	}

	expected := g.sign(encodeSorted(signable))
	if !hmac.Equal([]byte(strings.ToLower(cb.SecureHash)), []byte(expected)) {
		return Callback{}, ErrInvalidSignature
	}

	return cb, nil
}

// Succeeded applies the double check: both the response code and the
// transaction status must carry the success sentinel.
func (cb Callback) Succeeded() bool {
	return cb.ResponseCode == SuccessCode && cb.TransactionStatus == SuccessCode
}

// AmountMajor converts the gateway's minor-unit amount back to whole
// currency units.
func (cb Callback) AmountMajor() int64 {
	return cb.Amount / 100
}

func (cb Callback) PayTime() (time.Time, error) {
	if cb.PayDate == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, cb.PayDate, payDateZone)
}

func (g *Gateway) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(g.hashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeSorted covers every value of a repeated key, so a duplicate
// parameter smuggled next to a signed one cannot pass verification.
func encodeSorted(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if b.Len() > 0 {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}

// failureMessages maps the gateway's numeric response codes to the reasons
// shown to customers.
var failureMessages = map[string]string{
	"07": "Trừ tiền thành công. Giao dịch bị nghi ngờ (liên quan tới lừa đảo, giao dịch bất thường).",
	"09": "Giao dịch không thành công do: Thẻ/Tài khoản của khách hàng chưa đăng ký dịch vụ InternetBanking tại ngân hàng.",
	"10": "Giao dịch không thành công do: Khách hàng xác thực thông tin thẻ/tài khoản không đúng quá 3 lần",
	"11": "Giao dịch không thành công do: Đã hết hạn chờ thanh toán. Xin quý khách vui lòng thực hiện lại giao dịch.",
	"12": "Giao dịch không thành công do: Thẻ/Tài khoản của khách hàng bị khóa.",
	"13": "Giao dịch không thành công do Quý khách nhập sai mật khẩu xác thực giao dịch (OTP). Xin quý khách vui lòng thực hiện lại giao dịch.",
	"24": "Giao dịch không thành công do: Khách hàng hủy giao dịch",
	"51": "Giao dịch không thành công do: Tài khoản của quý khách không đủ số dư để thực hiện giao dịch.",
	"65": "Giao dịch không thành công do: Tài khoản của Quý khách đã vượt quá hạn mức giao dịch trong ngày.",
	"75": "Ngân hàng thanh toán đang bảo trì.",
	"79": "Giao dịch không thành công do: KH nhập sai mật khẩu thanh toán quá số lần quy định. Xin quý khách vui lòng thực hiện lại giao dịch",
}

const defaultFailureMessage = "Giao dịch không thành công"

// FailureMessage resolves a gateway response code to a human-readable
// reason. Unknown codes degrade to a generic message.
func FailureMessage(code string) string {
	if msg, ok := failureMessages[code]; ok {
		return msg
	}
	return defaultFailureMessage
}
