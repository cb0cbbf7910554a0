package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type AuthThunk func(ctx context.Context, apiToken string) (*events.APIGatewayV2CustomAuthorizerSimpleResponse, error)

// Claims published by the identity pool. Branch accounts identify the
// branch they report for; manager accounts additionally carry the
// manager role used to unlock triage and admin surfaces.
type UserInfo struct {
	Username string `json:"username"`
	Branch   string `json:"custom:branch"`
	Role     string `json:"custom:role"`
}

func _scopesFor(manager bool) []string {
	scopes := []string{
		"requests",
		"notifications",
	}
	if manager {
		scopes = append(scopes, "dashboard", "admin")
	}
	return scopes
}

func JWTAuthThunk(ctx context.Context, apiToken string) (*events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/oauth2/userInfo", os.Getenv("AUTH_POOL_URL")), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Add("Authorization", apiToken)
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid %s with token: %s", req.URL.String(), apiToken)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}
	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %v", err)
	}
	if info.Username == "" || info.Branch == "" {
		return nil, fmt.Errorf("claims are missing identity fields")
	}
	manager := strings.EqualFold(info.Role, "manager")
	return &events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: true,
		Context: map[string]interface{}{
			"identity": map[string]interface{}{
				"username": info.Username,
				"branch":   info.Branch,
				"manager":  manager,
			},
			"scopes": _scopesFor(manager),
		},
	}, nil
}

func HandleRequest(ctx context.Context, event events.APIGatewayV2CustomAuthorizerV2Request) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
	response := events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: false,
	}
	apiToken, ok := event.Headers["authorization"]
	thunks := []AuthThunk{
		JWTAuthThunk,
	}
	if ok {
		for _, authThunk := range thunks {
			newResp, err := authThunk(ctx, apiToken)
			if newResp != nil {
				return *newResp, err
			}
			if err != nil {
				fmt.Printf("Skipping auth due to %v\n", err)
			}
		}
	}
	return response, nil
}

func main() {
	lambda.Start(HandleRequest)
}
