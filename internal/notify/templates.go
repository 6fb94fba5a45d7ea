package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine and OrderSummary are the order fields the emails need.
type OrderLine struct {
	Name      string
	Quantity  int
	LineTotal decimal.Decimal
}

type OrderSummary struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	PaymentReference string
	Status           string
	Lines            []OrderLine
	Total            decimal.Decimal
}

// ShortID is the customer-facing order number.
func (s OrderSummary) ShortID() string {
	id := strings.ReplaceAll(s.ID, "-", "")
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}

type ProductRef struct {
	ID    string
	Name  string
	Image string
	Stock int
}

const (
	colorGold    = template.CSS("#c5a059")
	colorDanger  = template.CSS("#d9534f")
	colorWarning = template.CSS("#f0ad4e")
)

const mailTemplates = `
{{define "customer"}}<div style="font-family: 'Playfair Display', serif; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e5e5e5;"><h1 style="text-align: center; color: #c5a059;">{{.Title}}</h1>{{.Body}}<hr style="border: 0; border-top: 1px solid #eee; margin: 20px 0;"><p style="font-size: 12px; color: #666; text-align: center;">&copy; {{.Year}} LUMINA Luxury Beauty. All rights reserved.</p></div>{{end}}
{{define "alert"}}<div style="padding: 20px; border: 2px solid {{.Color}}; font-family: sans-serif;"><h2 style="color: {{.Color}};">{{.Title}}</h2>{{.Body}}</div>{{end}}

{{define "order_confirmation"}}<p>Dear {{.FirstName}},</p><p>Thank you for your order! We are preparing your luxury beauty ritual.</p><div style="background: #f9f9f9; padding: 20px; border-radius: 8px; margin: 20px 0;"><h3>Order Summary</h3><p><strong>Order ID:</strong> #{{.ID}}</p><hr>{{range .Lines}}<div style="display: flex; justify-content: space-between; margin: 10px 0;"><span>{{.Name}} x {{.Quantity}}</span><span>${{money .LineTotal}}</span></div>{{end}}<hr><div style="display: flex; justify-content: space-between; font-weight: bold;"><span>Total Paid</span><span>${{money .Total}}</span></div></div><p>We will notify you once your order has been shipped.</p>{{end}}
{{define "new_order_alert"}}<p><strong>Order ID:</strong> {{.Order.ID}}</p><p><strong>Customer:</strong> {{.Order.FirstName}} {{.Order.LastName}} ({{.Order.Email}})</p><p><strong>Total:</strong> ${{money .Order.Total}}</p><p><strong>Payment Ref:</strong> {{.Order.PaymentReference}}</p><a href="{{.DashboardURL}}" style="display: inline-block; padding: 10px 20px; background: #1a1a1a; color: white; text-decoration: none; border-radius: 4px;">View in Dashboard</a>{{end}}
{{define "out_of_stock"}}<p><strong>Product:</strong> {{.Name}}</p><p>The product has completely run out of stock. Please replenish as soon as possible.</p>{{end}}
{{define "low_stock"}}<p><strong>Product:</strong> {{.Name}}</p><p><strong>Current Stock:</strong> {{.Stock}}</p><p>This product is running low.</p>{{end}}
{{define "back_in_stock"}}<p>Dear {{.Name}},</p><p>The product you were waiting for is now back in stock: <strong>{{.Product.Name}}</strong></p><div style="text-align: center; margin: 30px 0;">{{if .Product.Image}}<img src="{{.Product.Image}}" alt="{{.Product.Name}}" style="width: 200px; border-radius: 8px; margin-bottom: 20px;"><br>{{end}}<a href="{{.ProductURL}}" style="background: #1a1a1a; color: white; padding: 12px 25px; text-decoration: none; border-radius: 4px;">Shop Now</a></div><p>Don't miss out, stock is limited!</p>{{end}}
{{define "order_status"}}<p>Dear {{.FirstName}},</p><p>The status of your order <strong>#{{.ShortID}}</strong> has been updated to: <strong style="color: #c5a059;">{{upper .Status}}</strong></p><div style="padding: 20px; background: #f9f9f9; border-radius: 8px; margin: 20px 0;"><p><strong>Order ID:</strong> #{{.ID}}</p><p><strong>Total:</strong> ${{money .Total}}</p></div><p>Thank you for choosing LUMINA Luxury Beauty.</p>{{end}}
{{define "restock_requested"}}<p><strong>Product:</strong> {{.Product.Name}}</p><p><strong>User:</strong> {{.Name}} ({{.Email}})</p><p><strong>Date:</strong> {{.At}}</p>{{end}}
{{define "welcome"}}<p>Dear {{.Name}},</p><p>Thank you for joining our exclusive community of beauty enthusiasts. Your account has been successfully created.</p><p>You can now explore our curated collection of luxury skincare, makeup, and fragrances.</p><div style="text-align: center; margin: 30px 0;"><a href="{{.LoginURL}}" style="background: #1a1a1a; color: white; padding: 12px 25px; text-decoration: none; border-radius: 4px;">Start Your Ritual</a></div><p>If you have any questions, our concierge team is always here to assist you.</p>{{end}}
{{define "login_alert"}}<p>Hello {{.Name}},</p><p>A new login was detected for your LUMINA account on {{.At}}.</p><p>If this was you, you can safely ignore this message. If you did not authorize this login, please contact our support team immediately or reset your password.</p>{{end}}
{{define "admin_login"}}<p>The system administrator account was accessed on {{.At}}</p>{{end}}
{{define "account_status"}}<p>Dear {{.Name}},</p><p>Your account status has been updated to: <strong>{{upper .Status}}</strong> by the system administrator.</p>{{if eq .Status "suspended"}}<p style="color: #d9534f;">You will no longer be able to access your account or make purchases until the suspension is lifted.</p>{{else}}<p>You can now access your account and continue your Lumina ritual.</p>{{end}}{{end}}
{{define "admin_message"}}<p>Dear {{.Name}},</p><div style="padding: 20px; background: #f9f9f9; border-left: 4px solid #c5a059; margin: 20px 0;">{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div><p>If you have any questions, our concierge team is always here to assist you.</p>{{end}}
{{define "account_deleted"}}<p>Dear {{.Name}},</p><p>Your LUMINA account has been deleted by the system administrator.</p><p>All your data, including order history and wishlist, has been removed from our system. We are sorry to see you go.</p>{{end}}
{{define "contact"}}<p><strong>Name:</strong> {{.Name}}</p><p><strong>Email:</strong> {{.Email}}</p>{{range .Lines}}<p>{{.}}</p>{{end}}{{end}}
`

var mailTmpl = template.Must(template.New("mail").Funcs(template.FuncMap{
	"money": money,
	"upper": strings.ToUpper,
}).Parse(mailTemplates))

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type frame struct {
	Title string
	Body  template.HTML
	Color template.CSS
	Year  int
}

// Templates renders every email the storefront sends. AdminEmail receives
// the operational alerts.
type Templates struct {
	AdminEmail    string
	StorefrontURL string
	Now           func() time.Time
}

func (t *Templates) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Templates) stamp() string { return t.now().Format("Jan 2, 2006 3:04 PM MST") }

// render returns "" when the template fails; the plain text part still goes out.
func (t *Templates) render(layout, body, title string, color template.CSS, data any) string {
	var inner bytes.Buffer
	if err := mailTmpl.ExecuteTemplate(&inner, body, data); err != nil {
		return ""
	}
	var out bytes.Buffer
	f := frame{Title: title, Body: template.HTML(inner.String()), Color: color, Year: t.now().Year()}
	if err := mailTmpl.ExecuteTemplate(&out, layout, f); err != nil {
		return ""
	}
	return out.String()
}

func (t *Templates) OrderConfirmation(o OrderSummary) Message {
	return NewMessage(KindOrderConfirmation, o.Email,
		"Order Confirmation - Lumina Luxury",
		fmt.Sprintf("Your order #%s has been received.", o.ID),
		t.render("customer", "order_confirmation", "Order Confirmed", colorGold, o))
}

func (t *Templates) NewOrderAlert(o OrderSummary) Message {
	data := struct {
		Order        OrderSummary
		DashboardURL string
	}{o, t.StorefrontURL + "/admin"}
	return NewMessage(KindNewOrderAlert, t.AdminEmail,
		"New Order Alert",
		fmt.Sprintf("A new order has been placed by %s", o.Email),
		t.render("alert", "new_order_alert", "New Order Received", colorGold, data))
}

func (t *Templates) OutOfStock(p ProductRef) Message {
	return NewMessage(KindOutOfStock, t.AdminEmail,
		fmt.Sprintf("URGENT: %s is Out of Stock", p.Name),
		fmt.Sprintf("%s is now out of stock.", p.Name),
		t.render("alert", "out_of_stock", "Critical: Product Out of Stock", colorDanger, p))
}

func (t *Templates) LowStock(p ProductRef) Message {
	return NewMessage(KindLowStock, t.AdminEmail,
		fmt.Sprintf("Alert: %s Stock is Low (%d)", p.Name, p.Stock),
		fmt.Sprintf("%s stock is low.", p.Name),
		t.render("alert", "low_stock", "Warning: Low Stock Alert", colorWarning, p))
}

func (t *Templates) BackInStock(p ProductRef, email, name string) Message {
	data := struct {
		Name       string
		Product    ProductRef
		ProductURL string
	}{name, p, t.StorefrontURL + "/product/" + p.ID}
	return NewMessage(KindBackInStock, email,
		fmt.Sprintf("Back in Stock: %s", p.Name),
		fmt.Sprintf("%s is now available at Lumina Luxury!", p.Name),
		t.render("customer", "back_in_stock", "Back In Stock!", colorGold, data))
}

func (t *Templates) OrderStatusUpdate(o OrderSummary) Message {
	return NewMessage(KindOrderStatus, o.Email,
		fmt.Sprintf("Order Status Update: %s", strings.ToUpper(o.Status)),
		fmt.Sprintf("Your order status has been updated to %s.", o.Status),
		t.render("customer", "order_status", "Order Status Update", colorGold, o))
}

func (t *Templates) RestockRequested(p ProductRef, email, name string) Message {
	data := struct {
		Product     ProductRef
		Name, Email string
		At          string
	}{p, name, email, t.stamp()}
	return NewMessage(KindRestockRequested, t.AdminEmail,
		"New Stock Notification Request",
		fmt.Sprintf("User %s requested notification for %s", name, p.Name),
		t.render("alert", "restock_requested", "Stock Notification Request", colorGold, data))
}

func (t *Templates) Welcome(email, name string) Message {
	data := struct{ Name, LoginURL string }{name, t.StorefrontURL + "/login"}
	return NewMessage(KindWelcome, email,
		"Welcome to Lumina Luxury",
		fmt.Sprintf("Welcome %s! Your account has been created.", name),
		t.render("customer", "welcome", "Welcome to LUMINA", colorGold, data))
}

func (t *Templates) LoginAlert(email, name string) Message {
	data := struct{ Name, At string }{name, t.stamp()}
	return NewMessage(KindLoginAlert, email,
		"New Login Detected - Lumina Luxury",
		"A new login was detected on your account.",
		t.render("customer", "login_alert", "Security Alert: New Login", colorGold, data))
}

func (t *Templates) AdminLogin() Message {
	data := struct{ At string }{t.stamp()}
	return NewMessage(KindAdminLogin, t.AdminEmail,
		"Admin Login Notification",
		"The admin account has been accessed.",
		t.render("alert", "admin_login", "Admin Access Granted", colorGold, data))
}

func (t *Templates) AccountStatus(email, name, status string) Message {
	data := struct{ Name, Status string }{name, status}
	return NewMessage(KindAccountStatus, email,
		fmt.Sprintf("Account Status Update: %s", strings.ToUpper(status)),
		fmt.Sprintf("Your account has been %s.", status),
		t.render("customer", "account_status", "Account Status Update", colorGold, data))
}

func (t *Templates) AdminMessage(email, name, subject, message string) Message {
	if strings.TrimSpace(subject) == "" {
		subject = "Message from Lumina Luxury"
	}
	data := struct {
		Name  string
		Lines []string
	}{name, strings.Split(message, "\n")}
	return NewMessage(KindAdminMessage, email, subject, message,
		t.render("customer", "admin_message", "Message from LUMINA", colorGold, data))
}

func (t *Templates) AccountDeleted(email, name string) Message {
	data := struct{ Name string }{name}
	return NewMessage(KindAccountDeleted, email,
		"Account Deletion Notice",
		"Your account has been deleted.",
		t.render("customer", "account_deleted", "Account Deletion Notice", colorGold, data))
}

func (t *Templates) ContactReceived(name, email, message string) Message {
	data := struct {
		Name, Email string
		Lines       []string
	}{name, email, strings.Split(message, "\n")}
	m := NewMessage(KindContact, t.AdminEmail,
		fmt.Sprintf("New Contact from %s", name),
		fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s", name, email, message),
		t.render("alert", "contact", "New Contact Message", colorGold, data))
	m.ReplyTo = email
	return m
}
