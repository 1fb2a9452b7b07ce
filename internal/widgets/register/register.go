// Package register handles the owner-side restaurant forms: the initial
// registration submission and the settings save on the manage page.
package register

import (
	"context"
	"strings"

	"github.com/orderfood-dev/orderfood/pkg/api"
	"github.com/orderfood-dev/orderfood/pkg/dispatch"
	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/session"
	"github.com/orderfood-dev/orderfood/pkg/toast"
)

// Widget is the registration and settings widget for one session.
type Widget struct {
	sess *session.Session
	api  *api.Client
	disp *dispatch.Dispatcher

	registerTarget *dispatch.Target
	settingsTarget *dispatch.Target
}

// New creates the widget. Both forms are singletons per session, so their
// targets are fixed at construction.
func New(sess *session.Session, client *api.Client, disp *dispatch.Dispatcher) *Widget {
	return &Widget{
		sess:           sess,
		api:            client,
		disp:           disp,
		registerTarget: dispatch.NewTarget("restaurant-register", dispatch.KindUpdate),
		settingsTarget: dispatch.NewTarget("restaurant-settings", dispatch.KindUpdate),
	}
}

// Mount binds the form handlers.
func (w *Widget) Mount() {
	w.sess.Bind("restaurant-form", "register", func(ev *live.Event) {
		in := api.RegisterInput{
			Name:     strings.TrimSpace(ev.String("name")),
			Address:  strings.TrimSpace(ev.String("address")),
			Phone:    strings.TrimSpace(ev.String("phone")),
			ImageURL: ev.String("image_url"),
		}
		go w.Register(in)
	})
	w.sess.Bind("restaurant-form", "save", func(ev *live.Event) {
		tax, _ := ev.Int("tax")
		in := api.RestaurantSettings{
			Name:      strings.TrimSpace(ev.String("name")),
			Address:   strings.TrimSpace(ev.String("address")),
			OpenHour:  ev.String("open_hour"),
			CloseHour: ev.String("close_hour"),
			IsOpen:    ev.Bool("is_open"),
			Tax:       float64(tax),
		}
		go w.Save(in)
	})
}

// Register submits the registration. Required fields are validated before
// the request so an obviously incomplete form never leaves the browser tab.
func (w *Widget) Register(in api.RegisterInput) error {
	if in.Name == "" || in.Address == "" || in.Phone == "" {
		w.sess.Dispatch(func() {
			toast.Warning(w.sess, "Vui lòng điền đầy đủ thông tin.")
		})
		return dispatch.ErrValidationFailed
	}
	return w.disp.Dispatch(w.sess.StdContext(), w.registerTarget, dispatch.Action{
		FailureMessage: "Đăng ký thất bại. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			if err := w.api.RegisterRestaurant(ctx, in); err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				toast.Success(w.sess, "Đã gửi đăng ký! Vui lòng chờ quản trị viên duyệt.")
				w.sess.Navigate("/owner/pending")
			})
			return nil
		},
	})
}

// Save stores the restaurant settings.
func (w *Widget) Save(in api.RestaurantSettings) error {
	if in.Name == "" {
		w.sess.Dispatch(func() {
			toast.Warning(w.sess, "Tên nhà hàng không được để trống.")
		})
		return dispatch.ErrValidationFailed
	}
	return w.disp.Dispatch(w.sess.StdContext(), w.settingsTarget, dispatch.Action{
		FailureMessage: "Không thể lưu cài đặt. Vui lòng thử lại.",
		Do: func(ctx context.Context, _ string) error {
			if err := w.api.UpdateRestaurant(ctx, in); err != nil {
				return err
			}
			w.sess.Dispatch(func() {
				toast.Success(w.sess, "Đã lưu cài đặt!")
			})
			return nil
		},
	})
}
