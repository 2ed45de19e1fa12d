package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"erpdocs/models"
)

func TestAccessScopeFilter(t *testing.T) {
	assert.Nil(t, accessScopeFilter(&actor{RoleLevel: models.RoleLevelViewAll}))
	assert.Nil(t, accessScopeFilter(&actor{RoleLevel: models.RoleLevelSuperAdmin}))

	act := &actor{ID: primitive.NewObjectID(), RoleLevel: 50, Department: "HR"}
	scope := accessScopeFilter(act)
	require.NotNil(t, scope)

	or := scope["$or"].([]bson.M)
	require.Len(t, or, 3)
	assert.Equal(t, act.ID, or[0]["createdBy"])
	assert.Equal(t, "HR", or[1]["department"])
	assert.Equal(t, false, or[2]["isConfidential"])
}

func TestCanMutateDocument(t *testing.T) {
	owner := primitive.NewObjectID()
	doc := &models.Document{CreatedBy: owner}

	assert.True(t, canMutateDocument(doc, &actor{ID: owner}))
	assert.True(t, canMutateDocument(doc, &actor{ID: primitive.NewObjectID(), RoleLevel: models.RoleLevelSuperAdmin}))
	assert.False(t, canMutateDocument(doc, &actor{ID: primitive.NewObjectID(), RoleLevel: models.RoleLevelApprover}))
	assert.False(t, canMutateDocument(doc, &actor{ID: primitive.NewObjectID()}))
}
