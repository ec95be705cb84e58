package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/notify"
)

func TestOwnerMovesOrderToReady(t *testing.T) {
	a := newApp(t)
	ownerUser := a.createOwner()
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(student.ID, map[uint]int{item.ID: 1})

	owner := a.browser()
	owner.login(ownerPhone)
	w := owner.post("/owner/orders/"+itoa(order.ID)+"/status", url.Values{"status": {"ready"}})
	require.Equal(t, "/owner/orders", w.Header().Get("Location"))
	assert.Contains(t, owner.follow(w).Body.String(), "Order #"+itoa(order.ID)+" is now ready")

	var stored models.Order
	require.NoError(t, a.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderReady, stored.Status)

	// checkout logs the initial pending row, the owner adds the move to ready
	var logs []models.OrderStatusLog
	require.NoError(t, a.db.Where("order_id = ?", order.ID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "", logs[0].OldStatus)
	assert.Equal(t, models.OrderPending, logs[0].NewStatus)
	assert.Equal(t, models.OrderPending, logs[1].OldStatus)
	assert.Equal(t, models.OrderReady, logs[1].NewStatus)
	assert.Equal(t, "owner:"+itoa(ownerUser.ID), logs[1].ChangedBy)

	events := a.events.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, notify.EventOrderUpdate, last.Name)
	assert.Equal(t, order.ID, last.OrderID)
	assert.Equal(t, models.OrderReady, last.Status)

	b := a.browser()
	b.login(studentPhone)
	page := b.get("/order_status/" + itoa(order.ID))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Ready")
}

func TestOwnerCannotMoveOrderBackwards(t *testing.T) {
	a := newApp(t)
	a.createOwner()
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(student.ID, map[uint]int{item.ID: 1})

	owner := a.browser()
	owner.login(ownerPhone)
	owner.post("/owner/orders/"+itoa(order.ID)+"/status", url.Values{"status": {"ready"}})
	w := owner.post("/owner/orders/"+itoa(order.ID)+"/status", url.Values{"status": {"pending"}})
	assert.Contains(t, owner.follow(w).Body.String(), "That status change is not allowed")

	w = owner.post("/owner/orders/"+itoa(order.ID)+"/status", url.Values{"status": {"eaten"}})
	assert.Contains(t, owner.follow(w).Body.String(), "Invalid status")

	w = owner.post("/owner/orders/999/status", url.Values{"status": {"ready"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanUnknownTokenChangesNothing(t *testing.T) {
	a := newApp(t)
	a.createOwner()
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(student.ID, map[uint]int{item.ID: 1})
	before := len(a.events.Events())

	owner := a.browser()
	owner.login(ownerPhone)
	w := owner.post("/owner/scanner", url.Values{"token": {"zzzzzz"}})
	require.Equal(t, "/owner/scanner", w.Header().Get("Location"))
	assert.Contains(t, owner.follow(w).Body.String(), "No order with that token")

	var stored models.Order
	require.NoError(t, a.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.Len(t, a.events.Events(), before)
}

func TestScanCompletesOrder(t *testing.T) {
	a := newApp(t)
	a.createOwner()
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(student.ID, map[uint]int{item.ID: 1})

	owner := a.browser()
	owner.login(ownerPhone)
	w := owner.post("/owner/scanner", url.Values{"token": {" " + strings.ToUpper(order.TokenCode) + " "}})
	assert.Contains(t, owner.follow(w).Body.String(), "Order #"+itoa(order.ID)+" collected")

	var stored models.Order
	require.NoError(t, a.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderCompleted, stored.Status)

	// a second scan finds the order closed
	w = owner.post("/owner/scanner", url.Values{"token": {order.TokenCode}})
	assert.Contains(t, owner.follow(w).Body.String(), "is already completed")
}

func TestScanJSON(t *testing.T) {
	a := newApp(t)
	a.createOwner()
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(student.ID, map[uint]int{item.ID: 1})

	owner := a.browser()
	owner.login(ownerPhone)
	scan := func(token string) (*httptest.ResponseRecorder, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/owner/scanner", strings.NewReader(url.Values{"token": {token}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		w := owner.send(req)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w, body
	}

	w, body := scan("")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["status"])

	w, body = scan("abcdef0")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No order with that token", body["message"])

	w, body = scan(order.TokenCode)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["status"])

	w, _ = scan(order.TokenCode)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStudentCannotSeeOtherStudentsOrder(t *testing.T) {
	a := newApp(t)
	first := a.createStudent(studentPhone)
	a.createStudent("9000000003")
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(first.ID, map[uint]int{item.ID: 1})

	b := a.browser()
	b.login("9000000003")
	assert.Equal(t, http.StatusNotFound, b.get("/order_status/"+itoa(order.ID)).Code)
	assert.Equal(t, http.StatusNotFound, b.get("/order_status/"+itoa(order.ID)+"/qr.png").Code)
	assert.Equal(t, http.StatusNotFound, b.get("/order_status/abc").Code)
}

func TestTicketQRAndPDF(t *testing.T) {
	a := newApp(t)
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	order := a.placeOrder(student.ID, map[uint]int{item.ID: 2})

	b := a.browser()
	b.login(studentPhone)

	qr := b.get("/order_status/" + itoa(order.ID) + "/qr.png")
	require.Equal(t, http.StatusOK, qr.Code)
	assert.Equal(t, "image/png", qr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(qr.Body.String(), "\x89PNG"))

	pdf := b.get("/order_status/" + itoa(order.ID) + "/ticket.pdf")
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(pdf.Body.String(), "%PDF"))
}

func TestHistoryAndReorder(t *testing.T) {
	a := newApp(t)
	student := a.createStudent(studentPhone)
	tea := a.createItem("Tea", 10, 20)
	bun := a.createItem("Bun", 15, 20)
	order := a.placeOrder(student.ID, map[uint]int{tea.ID: 2, bun.ID: 1})

	b := a.browser()
	b.login(studentPhone)
	history := b.get("/orders/history")
	require.Equal(t, http.StatusOK, history.Code)
	assert.Contains(t, history.Body.String(), "#"+itoa(order.ID))

	require.NoError(t, a.db.Delete(&models.MenuItem{}, bun.ID).Error)
	w := b.post("/orders/"+itoa(order.ID)+"/reorder", url.Values{})
	require.Equal(t, "/cart", w.Header().Get("Location"))
	body := b.follow(w).Body.String()
	assert.Contains(t, body, "1 item(s) from that order are no longer available")
	assert.Contains(t, body, "Tea")
	assert.Contains(t, body, "₹20.00")

	w = b.post("/orders/999/reorder", url.Values{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnerOrdersFilter(t *testing.T) {
	a := newApp(t)
	a.createOwner()
	student := a.createStudent(studentPhone)
	item := a.createItem("Dosa", 40, 5)
	a.placeOrder(student.ID, map[uint]int{item.ID: 1})

	owner := a.browser()
	owner.login(ownerPhone)
	assert.Equal(t, http.StatusOK, owner.get("/owner/orders").Code)
	assert.Equal(t, http.StatusOK, owner.get("/owner/orders?status=pending").Code)

	w := owner.get("/owner/orders?status=bogus")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestStudentIsKeptOutOfOwnerPages(t *testing.T) {
	a := newApp(t)
	a.createStudent(studentPhone)
	b := a.browser()
	b.login(studentPhone)

	w := b.get("/owner/dashboard")
	require.Equal(t, "/menu", w.Header().Get("Location"))
	assert.Contains(t, b.follow(w).Body.String(), "Owner access required")

	anon := a.browser()
	w = anon.get("/owner/orders")
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth/login?next="))
}
