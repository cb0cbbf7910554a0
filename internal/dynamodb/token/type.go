package token

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// TokenMarshaler converts a DynamoDB pagination key into an opaque
// client-facing token and back. The scope (a branch code or an entity
// name for index queries) keys the encryption, so a token issued for
// one scope is useless against another.
type TokenMarshaler interface {
	Marshal(scope string, lastKey map[string]types.AttributeValue) (string, error)

	Unmarshal(scope string, token string) (map[string]types.AttributeValue, error)
}
