package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/tracker"
)

// replaySession 模拟一位访客：匿名浏览几个页面，随后在页脚表单注册，
// 注册成功后本地缓存的历史会被投递到服务端
func replaySession(serverURL, email, cacheDir string) error {
	store, err := tracker.OpenBadgerLocalStore(cacheDir)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer store.Close()

	log := logger.SW("component", "seed_replay")
	t := tracker.New(store, tracker.NewHTTPIngestionClient(serverURL, nil), tracker.Options{
		PersistInterval: time.Second,
		Logger:          log,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go t.Run(ctx)

	capture := t.Capture()
	visit := func(page tracker.Page) {
		capture.EnterPage(page)
		capture.Scroll(40)
		capture.Scroll(80)
	}

	visit(tracker.Page{URL: serverURL + "/", Title: "Home", Referrer: "https://www.google.com/"})
	t.ReportPageView()
	visit(tracker.Page{URL: serverURL + "/collections/notebooks", Title: "Notebooks", Referrer: serverURL + "/"})
	t.ReportPageView()
	visit(tracker.Page{URL: serverURL + "/products/field-notebook", Title: "Field Notebook", Referrer: serverURL + "/collections/notebooks"})
	capture.Click(tracker.Element{Tag: "button", Text: "Add to cart", Name: "add"})
	capture.FieldFocus(tracker.Element{Tag: "input", Type: "email", Name: "contact[email]"})
	t.Track(constants.EventNewsletterFormSubmit, map[string]interface{}{"form": "footer"})

	resp, err := t.Signup(ctx, tracker.SignupInput{
		Email:     email,
		FirstName: "Replay",
		DeviceData: map[string]interface{}{
			"screenResolution": "1440x900",
			"viewport":         "1280x720",
			"timezone":         "Europe/Paris",
			"language":         "fr-FR",
			"platform":         "MacIntel",
		},
		LocationData: map[string]interface{}{
			"country":         "France",
			"city":            "Paris",
			"detectionMethod": "timezone",
		},
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Message)
	}

	// 注册之后的浏览实时上报
	t.ReportPageView()
	visit(tracker.Page{URL: serverURL + "/cart", Title: "Cart", Referrer: serverURL + "/products/field-notebook"})
	t.Track(constants.EventButtonClick, map[string]interface{}{"text": "Checkout"})
	t.ReportPageView()
	t.Wait()

	failures := 0
	for pending := true; pending; {
		select {
		case err := <-t.Errors():
			failures++
			log.Warnw("seed_replay_send_failed", "error", err)
		default:
			pending = false
		}
	}
	log.Infow("seed_replay_done",
		"email", email,
		"session_id", t.SessionID(),
		"already_subscribed", resp.AlreadySubscribed,
		"failures", failures,
	)
	return nil
}
