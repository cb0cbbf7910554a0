package routes_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/retention"
	"storefix.io/maintenance/internal/routes"
	"storefix.io/maintenance/internal/routes/admin"
	"storefix.io/maintenance/internal/routes/dashboard"
	"storefix.io/maintenance/internal/routes/notifications"
	"storefix.io/maintenance/internal/routes/requests"
	"storefix.io/maintenance/internal/test"
)

type LocalServer struct {
	Router        *routes.Router
	Requests      *test.RequestStore
	Notifications *test.NotificationStore
	Images        *test.ImageStore
	Username      string
	Branch        string
	Manager       bool
}

func NewLocalServer(t *testing.T) *LocalServer {
	requestStore := test.NewRequestStore()
	notificationStore := test.NewNotificationStore()
	imageStore := test.NewImageStore(true)
	engine := retention.NewEngine(requestStore, notificationStore, imageStore, nil)
	router := routes.NewRouter(
		requests.NewRoute(requestStore),
		notifications.NewRoute(notificationStore),
		dashboard.NewRoute(requestStore),
		admin.NewRoute(engine),
	)
	return &LocalServer{
		Router:        router,
		Requests:      requestStore,
		Notifications: notificationStore,
		Images:        imageStore,
		Username:      "clerk",
		Branch:        "BR-014",
	}
}

func (ls *LocalServer) UpdateIdentity(username, branch string, manager bool) {
	ls.Username = username
	ls.Branch = branch
	ls.Manager = manager
}

func (ls *LocalServer) Request(t *testing.T, method string, path string, body []byte, out any, params map[string]string) events.APIGatewayV2HTTPResponse {
	scopes := []interface{}{"requests", "notifications"}
	if ls.Manager {
		scopes = append(scopes, "dashboard", "admin")
	}
	request := events.APIGatewayV2HTTPRequest{
		RawPath:               path,
		QueryStringParameters: params,
		Body:                  string(body),
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   path,
			},
			Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				Lambda: map[string]interface{}{
					"identity": map[string]interface{}{
						"username": ls.Username,
						"branch":   ls.Branch,
						"manager":  ls.Manager,
					},
					"scopes": scopes,
				},
			},
		},
	}
	response := ls.Router.Invoke(request, context.TODO())
	if out != nil && response.StatusCode < 300 {
		if err := json.Unmarshal([]byte(response.Body), &out); err != nil {
			t.Fatalf("Failed to deserialize payload for %s %s: %s", method, path, response.Body)
		}
	}
	return response
}

func (ls *LocalServer) Options(t *testing.T, path string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "OPTIONS", path, nil, nil, nil)
}

func (ls *LocalServer) Get(t *testing.T, out any, path string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "GET", path, nil, &out, nil)
}

func (ls *LocalServer) GetQuery(t *testing.T, out any, path string, params map[string]string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "GET", path, nil, &out, params)
}

func (ls *LocalServer) Post(t *testing.T, out any, path string, body any) events.APIGatewayV2HTTPResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to serialize input: %s", err)
	}
	return ls.Request(t, "POST", path, payload, &out, nil)
}

func (ls *LocalServer) PostQuery(t *testing.T, out any, path string, body any, params map[string]string) events.APIGatewayV2HTTPResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to serialize input: %s", err)
	}
	return ls.Request(t, "POST", path, payload, &out, params)
}

func _agedCompleted(branch, submitter, title string, age time.Duration, imageUrl *string) data.MaintenanceRequestDTO {
	stamp := time.Now().Add(-age)
	return data.MaintenanceRequestDTO{
		BranchCode:  branch,
		SubmittedBy: submitter,
		Title:       title,
		Description: "seeded",
		Status:      data.StatusCompleted,
		ImageUrl:    imageUrl,
		Timestamp:   stamp,
		UpdateTime:  stamp,
	}
}

func TestRouter(t *testing.T) {
	t.Run("RequestWorkflow", func(t *testing.T) {
		server := NewLocalServer(t)
		var created requests.MaintenanceRequest
		response := server.Post(t, &created, "/requests", &requests.MaintenanceRequestInput{
			Title:       aws.String("Broken freezer"),
			Description: aws.String("The walk-in freezer in the back room stopped cooling."),
			Category:    aws.String("equipment"),
		})
		if response.StatusCode != 200 {
			t.Fatalf("Response on create %d: %s", response.StatusCode, response.Body)
		}
		if created.Status != string(data.StatusUnderReview) {
			t.Fatalf("Expected a new request to be UNDER_REVIEW, got %s", created.Status)
		}
		if created.BranchCode != "BR-014" || created.SubmittedBy != "clerk" {
			t.Fatalf("Creation lost the submitter identity: %s", response.Body)
		}
		get := server.Get(t, nil, fmt.Sprintf("/requests/%s", created.Id))
		if get.StatusCode != 200 {
			t.Fatalf("Response failed with status %d: %s", get.StatusCode, get.Body)
		}
		if response.Body != get.Body {
			t.Fatalf("Get response does not match create: %s != %s", get.Body, response.Body)
		}
		var results data.QueryResults[requests.MaintenanceRequest]
		list := server.Get(t, &results, "/requests")
		if len(results.Items) != 1 || results.Items[0].Id != created.Id {
			t.Fatalf("List does not contain %s: %s", response.Body, list.Body)
		}

		server.UpdateIdentity("regional", "HQ", true)
		var updated requests.MaintenanceRequest
		for _, next := range []data.RequestStatus{data.StatusApproved, data.StatusInProgress} {
			moved := server.PostQuery(t, &updated, fmt.Sprintf("/requests/%s/status", created.Id), &requests.StatusInput{
				Status: aws.String(string(next)),
			}, map[string]string{"branch": "BR-014"})
			if moved.StatusCode != 200 || updated.Status != string(next) {
				t.Fatalf("Failed moving to %s: %d %s", next, moved.StatusCode, moved.Body)
			}
		}
		completed := server.PostQuery(t, &updated, fmt.Sprintf("/requests/%s/status", created.Id), &requests.StatusInput{
			Status:         aws.String(string(data.StatusCompleted)),
			ResolutionNote: aws.String("Replaced the compressor relay."),
		}, map[string]string{"branch": "BR-014"})
		if completed.StatusCode != 200 {
			t.Fatalf("Completion failed %d: %s", completed.StatusCode, completed.Body)
		}
		if updated.ResolutionNote == nil || *updated.ResolutionNote != "Replaced the compressor relay." {
			t.Fatalf("Resolution note was dropped: %s", completed.Body)
		}

		server.UpdateIdentity("clerk", "BR-014", false)
		var rated requests.MaintenanceRequest
		feedback := server.Post(t, &rated, fmt.Sprintf("/requests/%s/feedback", created.Id), &requests.FeedbackInput{
			Rating:   aws.Int(4),
			Feedback: aws.String("Fixed fast."),
		})
		if feedback.StatusCode != 200 || rated.Rating == nil || *rated.Rating != 4 {
			t.Fatalf("Feedback failed %d: %s", feedback.StatusCode, feedback.Body)
		}
		again := server.Post(t, nil, fmt.Sprintf("/requests/%s/feedback", created.Id), &requests.FeedbackInput{
			Rating: aws.Int(1),
		})
		if again.StatusCode != 409 {
			t.Fatalf("Expected a conflict on a second rating, got %d: %s", again.StatusCode, again.Body)
		}
	})

	t.Run("StatusTransitionGuards", func(t *testing.T) {
		server := NewLocalServer(t)
		var created requests.MaintenanceRequest
		server.Post(t, &created, "/requests", &requests.MaintenanceRequestInput{
			Title:       aws.String("Leaky tap"),
			Description: aws.String("Dripping in the staff kitchen."),
		})
		server.UpdateIdentity("regional", "HQ", true)
		skipped := server.PostQuery(t, nil, fmt.Sprintf("/requests/%s/status", created.Id), &requests.StatusInput{
			Status: aws.String(string(data.StatusCompleted)),
		}, map[string]string{"branch": "BR-014"})
		if skipped.StatusCode != 400 {
			t.Fatalf("Expected 400 skipping to COMPLETED, got %d: %s", skipped.StatusCode, skipped.Body)
		}
		unknown := server.PostQuery(t, nil, fmt.Sprintf("/requests/%s/status", created.Id), &requests.StatusInput{
			Status: aws.String("LOST"),
		}, map[string]string{"branch": "BR-014"})
		if unknown.StatusCode != 400 {
			t.Fatalf("Expected 400 on an unknown status, got %d: %s", unknown.StatusCode, unknown.Body)
		}
	})

	t.Run("CancelRules", func(t *testing.T) {
		server := NewLocalServer(t)
		var created requests.MaintenanceRequest
		server.Post(t, &created, "/requests", &requests.MaintenanceRequestInput{
			Title:       aws.String("Wobbly shelf"),
			Description: aws.String("Aisle 3 shelving leans forward."),
		})
		var cancelled requests.MaintenanceRequest
		response := server.Post(t, &cancelled, fmt.Sprintf("/requests/%s/cancel", created.Id), nil)
		if response.StatusCode != 200 || cancelled.Status != string(data.StatusCancelled) {
			t.Fatalf("Cancel failed %d: %s", response.StatusCode, response.Body)
		}
		late := server.Post(t, nil, fmt.Sprintf("/requests/%s/cancel", created.Id), nil)
		if late.StatusCode != 400 {
			t.Fatalf("Expected 400 cancelling a CANCELLED request, got %d: %s", late.StatusCode, late.Body)
		}
	})

	t.Run("CreateValidation", func(t *testing.T) {
		server := NewLocalServer(t)
		response := server.Post(t, nil, "/requests", &requests.MaintenanceRequestInput{
			Title: aws.String("No description"),
		})
		if response.StatusCode != 400 {
			t.Fatalf("Expected 400 without a description, got %d: %s", response.StatusCode, response.Body)
		}
	})

	t.Run("ManagerBoundary", func(t *testing.T) {
		server := NewLocalServer(t)
		all := server.Get(t, nil, "/requests/all")
		if all.StatusCode != 403 {
			t.Fatalf("Expected 403 for a branch user on /requests/all, got %d: %s", all.StatusCode, all.Body)
		}
		board := server.Get(t, nil, "/dashboard")
		if board.StatusCode != 401 {
			t.Fatalf("Expected 401 outside granted scopes, got %d: %s", board.StatusCode, board.Body)
		}
		server.UpdateIdentity("regional", "HQ", true)
		var results data.QueryResults[requests.MaintenanceRequest]
		ok := server.Get(t, &results, "/requests/all")
		if ok.StatusCode != 200 {
			t.Fatalf("Manager listing failed %d: %s", ok.StatusCode, ok.Body)
		}
	})

	t.Run("ManagerBranchOverride", func(t *testing.T) {
		server := NewLocalServer(t)
		seeded := server.Requests.Seed(_agedCompleted("BR-201", "clerk2", "Flickering sign", time.Hour, nil))
		server.UpdateIdentity("regional", "HQ", true)
		var fetched requests.MaintenanceRequest
		response := server.GetQuery(t, &fetched, fmt.Sprintf("/requests/%s", seeded.SK), map[string]string{"branch": "BR-201"})
		if response.StatusCode != 200 || fetched.BranchCode != "BR-201" {
			t.Fatalf("Cross-branch lookup failed %d: %s", response.StatusCode, response.Body)
		}
		server.UpdateIdentity("clerk", "BR-014", false)
		denied := server.GetQuery(t, nil, fmt.Sprintf("/requests/%s", seeded.SK), map[string]string{"branch": "BR-201"})
		if denied.StatusCode != 404 {
			t.Fatalf("Branch override must not apply to branch users, got %d: %s", denied.StatusCode, denied.Body)
		}
	})

	t.Run("NotificationFeed", func(t *testing.T) {
		server := NewLocalServer(t)
		branchNote := server.Notifications.Seed(data.NotificationDTO{
			BranchCode: "BR-014",
			Title:      "Status changed",
			Message:    "Your request moved to APPROVED",
			Type:       data.NotificationStatusUpdate,
			Timestamp:  time.Now(),
		})
		server.Notifications.Seed(data.NotificationDTO{
			BranchCode:   "BR-014",
			Title:        "New request",
			Message:      "BR-014 filed a new request",
			Type:         data.NotificationNewRequest,
			IsForManager: true,
			Timestamp:    time.Now(),
		})
		var results data.QueryResults[notifications.Notification]
		response := server.Get(t, &results, "/notifications")
		if response.StatusCode != 200 || len(results.Items) != 1 {
			t.Fatalf("Branch feed should hide manager notifications: %s", response.Body)
		}
		if results.Items[0].Id != branchNote.SK || results.Items[0].Read {
			t.Fatalf("Unexpected branch feed contents: %s", response.Body)
		}

		server.UpdateIdentity("regional", "HQ", true)
		var managerResults data.QueryResults[notifications.Notification]
		managerList := server.Get(t, &managerResults, "/notifications")
		if managerList.StatusCode != 200 || len(managerResults.Items) != 2 {
			t.Fatalf("Manager feed should aggregate every branch: %s", managerList.Body)
		}

		server.UpdateIdentity("clerk", "BR-014", false)
		var read notifications.Notification
		marked := server.Post(t, &read, fmt.Sprintf("/notifications/%s/read", branchNote.SK), nil)
		if marked.StatusCode != 200 || !read.Read {
			t.Fatalf("Mark read failed %d: %s", marked.StatusCode, marked.Body)
		}
	})

	t.Run("Dashboard", func(t *testing.T) {
		server := NewLocalServer(t)
		server.Requests.Seed(_agedCompleted("BR-014", "clerk", "Done one", time.Hour, nil))
		server.Requests.Seed(data.MaintenanceRequestDTO{
			BranchCode:  "BR-201",
			SubmittedBy: "clerk2",
			Title:       "Open one",
			Description: "seeded",
			Status:      data.StatusUnderReview,
			Timestamp:   time.Now(),
			UpdateTime:  time.Now(),
		})
		server.UpdateIdentity("regional", "HQ", true)
		var summary dashboard.Summary
		response := server.Get(t, &summary, "/dashboard")
		if response.StatusCode != 200 {
			t.Fatalf("Dashboard failed %d: %s", response.StatusCode, response.Body)
		}
		if summary.TotalRequests != 2 || summary.OpenRequests != 1 {
			t.Fatalf("Unexpected dashboard totals: %s", response.Body)
		}
		if summary.ByBranch["BR-014"] != 1 || summary.ByBranch["BR-201"] != 1 {
			t.Fatalf("Unexpected branch split: %s", response.Body)
		}
		if summary.ByStatus[string(data.StatusCompleted)] != 1 {
			t.Fatalf("Unexpected status split: %s", response.Body)
		}
	})

	t.Run("AdminStorage", func(t *testing.T) {
		server := NewLocalServer(t)
		image := "https://images.example.com/freezer.jpg"
		server.Requests.Seed(_agedCompleted("BR-014", "clerk", "Stale done", 40*24*time.Hour, &image))
		server.Requests.Seed(_agedCompleted("BR-014", "clerk", "Fresh done", time.Hour, nil))
		denied := server.Get(t, nil, "/admin/storage")
		if denied.StatusCode != 401 {
			t.Fatalf("Expected 401 for a branch user on /admin/storage, got %d: %s", denied.StatusCode, denied.Body)
		}
		server.UpdateIdentity("regional", "HQ", true)
		var stats retention.StorageStatistics
		response := server.Get(t, &stats, "/admin/storage")
		if response.StatusCode != 200 {
			t.Fatalf("Storage statistics failed %d: %s", response.StatusCode, response.Body)
		}
		if stats.TotalRequests != 2 || stats.CompletedRequests != 2 || stats.OldCompletedRequests != 1 {
			t.Fatalf("Unexpected request counts: %s", response.Body)
		}
		if stats.EstimatedCleanupSavings != 1 || stats.EstimatedImageCleanup != 1 {
			t.Fatalf("Unexpected cleanup estimates: %s", response.Body)
		}
	})

	t.Run("AdminCleanup", func(t *testing.T) {
		server := NewLocalServer(t)
		image := "https://images.example.com/shelf.jpg"
		server.Requests.Seed(_agedCompleted("BR-014", "clerk", "Ancient done", 45*24*time.Hour, &image))
		server.Requests.Seed(_agedCompleted("BR-201", "clerk2", "Recent done", 2*24*time.Hour, nil))
		server.UpdateIdentity("regional", "HQ", true)
		var result retention.RequestSweepResult
		response := server.Post(t, &result, "/admin/cleanup", &admin.CleanupInput{
			Type:    aws.String(admin.CleanupTypeRequests),
			DaysOld: aws.Int(30),
		})
		if response.StatusCode != 200 || !result.Success {
			t.Fatalf("Cleanup failed %d: %s", response.StatusCode, response.Body)
		}
		if result.DeletedCount != 1 || result.ImagesRemoved != 1 {
			t.Fatalf("Expected only the ancient document to go: %s", response.Body)
		}
		if server.Requests.Len() != 1 {
			t.Fatalf("Store retained %d documents", server.Requests.Len())
		}

		bad := server.Post(t, nil, "/admin/cleanup", &admin.CleanupInput{
			Type: aws.String("everything"),
		})
		if bad.StatusCode != 400 {
			t.Fatalf("Expected 400 on an unknown cleanup type, got %d: %s", bad.StatusCode, bad.Body)
		}
		negative := server.Post(t, nil, "/admin/cleanup", &admin.CleanupInput{
			Type:    aws.String(admin.CleanupTypeRequests),
			DaysOld: aws.Int(-3),
		})
		if negative.StatusCode != 400 {
			t.Fatalf("Expected 400 on a negative age, got %d: %s", negative.StatusCode, negative.Body)
		}
	})

	t.Run("CleanupDefaultsDiverge", func(t *testing.T) {
		// A 10 day old completed request survives the engine's own 30
		// day default but not the boundary's 7 day fallback.
		server := NewLocalServer(t)
		server.Requests.Seed(_agedCompleted("BR-014", "clerk", "Ten days done", 10*24*time.Hour, nil))
		server.UpdateIdentity("regional", "HQ", true)
		var result retention.RequestSweepResult
		response := server.Post(t, &result, "/admin/cleanup", &admin.CleanupInput{
			Type: aws.String(admin.CleanupTypeRequests),
		})
		if response.StatusCode != 200 || result.DeletedCount != 1 {
			t.Fatalf("Fallback cleanup should remove the document: %d %s", response.StatusCode, response.Body)
		}
	})

	t.Run("FullCleanupIgnoresAge", func(t *testing.T) {
		server := NewLocalServer(t)
		server.Requests.Seed(_agedCompleted("BR-014", "clerk", "Ten days done", 10*24*time.Hour, nil))
		server.Notifications.Seed(data.NotificationDTO{
			BranchCode: "BR-014",
			Title:      "Stale note",
			Message:    "old",
			Type:       data.NotificationSystem,
			Timestamp:  time.Now().Add(-10 * 24 * time.Hour),
		})
		server.UpdateIdentity("regional", "HQ", true)
		var result retention.FullSweepResult
		response := server.Post(t, &result, "/admin/cleanup", &admin.CleanupInput{
			Type:    aws.String(admin.CleanupTypeFull),
			DaysOld: aws.Int(1),
		})
		if response.StatusCode != 200 {
			t.Fatalf("Full cleanup failed %d: %s", response.StatusCode, response.Body)
		}
		if result.Requests.DeletedCount != 0 {
			t.Fatalf("Full cleanup must run requests at the engine default: %s", response.Body)
		}
		if result.Notifications.DeletedCount != 1 || result.TotalDeleted != 1 {
			t.Fatalf("Full cleanup missed the stale notification: %s", response.Body)
		}
	})

	t.Run("CorsPreflight", func(t *testing.T) {
		server := NewLocalServer(t)
		response := server.Options(t, "/requests")
		if response.StatusCode != 200 {
			t.Fatalf("Preflight failed %d", response.StatusCode)
		}
		if response.Headers["access-control-allow-origin"] != "*" {
			t.Fatalf("Missing CORS headers: %v", response.Headers)
		}
	})

	t.Run("MissingAuthorizer", func(t *testing.T) {
		server := NewLocalServer(t)
		request := events.APIGatewayV2HTTPRequest{
			RawPath: "/requests",
			RequestContext: events.APIGatewayV2HTTPRequestContext{
				HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
					Method: "GET",
					Path:   "/requests",
				},
			},
		}
		response := server.Router.Invoke(request, context.TODO())
		if response.StatusCode != 401 {
			t.Fatalf("Expected 401 without an authorizer context, got %d: %s", response.StatusCode, response.Body)
		}
	})

	t.Run("UnknownResource", func(t *testing.T) {
		server := NewLocalServer(t)
		response := server.Get(t, nil, "/requests/does-not-exist")
		if response.StatusCode != 404 {
			t.Fatalf("Expected 404 on a missing request, got %d: %s", response.StatusCode, response.Body)
		}
	})
}
