package caspio

// Table names in the bridge store.
const (
	TableDesigns     = "designs"
	TableArtRequests = "artrequests"
	TableCustomers   = "customers"
)

// DesignRecord is the typed projection of one design/art-request row.
// External rows are loosely typed; this struct is the validation boundary,
// nothing downstream touches raw store fields.
type DesignRecord struct {
	PKID        int64  `json:"PK_ID"`
	DesignID    int64  `json:"ID_Design"`
	CompanyName string `json:"CompanyName"`
	CustomerID  *int64 `json:"ID_Customer"`
	Description string `json:"Description"`
	Notes       string `json:"NOTES"`
	SalesRep    string `json:"CustomerServiceRep"`
	Category    string `json:"Category"`
	Active      bool   `json:"sts_Active"`
}

// HasCustomer reports whether the record is linked to a registry customer.
func (r DesignRecord) HasCustomer() bool {
	return r.CustomerID != nil && *r.CustomerID > 0
}

// CustomerRecord is one row of the authoritative customer table.
type CustomerRecord struct {
	CustomerID  int64  `json:"ID_Customer"`
	CompanyName string `json:"CompanyName"`
	SalesRep    string `json:"CustomerServiceRep"`
}
