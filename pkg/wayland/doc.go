// Package wayland binds the input method and virtual keyboard protocols on
// top of the go-wayland client.
//
// wl_display, wl_registry, wl_callback and wl_seat come from go-wayland;
// zwp_input_method_v2 and zwp_virtual_keyboard_v1 with their managers are
// proxies written in its style. The package implements the transport
// interfaces of package inputmethod:
//
//	conn, err := wayland.Dial(ctx, wayland.DefaultDialConfig())
//	b, err := conn.Bootstrap(ctx)
//	svc, err := inputmethod.NewService(b, connector)
package wayland
