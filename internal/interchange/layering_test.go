package interchange

import (
	"testing"

	"traycore/testutil"
)

func TestInterchangeUsesBlobFacade(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(testutil.InfraImportForbidden, testutil.StorageDriverImportForbidden),
		"documents are read and written through internal/blob")
}
