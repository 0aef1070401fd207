package importer

// Known column names per field, best first. Matching falls back to folded
// headers (see core.FoldHeader), so "WAN IP" also finds "wan_ip".

var (
	colBranchName = []string{"Branch Name", "branch_name", "branch"}

	colConnectionType = []string{"Connection Type", "connection_type"}
	colServiceNumber  = []string{"Service No.", "service_no", "service_number"}
	colAccountNumber  = []string{"Account No", "Account Number", "account_no", "account_number"}
	colWANAddress     = []string{"WAN Address", "WAN IP", "wan_address", "wan_ip", "wan ip"}
	colLANAddress     = []string{"LAN Address", "LAN IP", "lan_address", "lan ip"}
	colDefaultGateway = []string{"Default Gateway", "WAN Default Gateway", "wan_default_gateway", "default_gateway"}
	colHostName       = []string{"Host Name", "host_name", "hostname"}
	colVSATIP         = []string{"VSAT IP", "vsat_ip"}
)

var (
	colContactName       = []string{"Contact Person", "contact_person", "contact_person_name", "Full Name", "full_name"}
	colContactRole       = []string{"Role", "role"}
	colContactPhone      = []string{"Phone Number", "phone_number", "Phone", "phone"}
	colContactAltPhone   = []string{"Alternative Phone", "alternative_phone", "alt_phone"}
	colContactEmail      = []string{"Email", "email"}
	colContactDepartment = []string{"Department", "department"}
)

var (
	colTID                 = []string{"TID", "tid"}
	colATMBranch           = []string{"branch", "branch_name", "Branch Name"}
	colATMName             = []string{"atm_name", "atm name", "atm"}
	colATMIP               = []string{"ip_address", "ip address", "ip"}
	colATMPort             = []string{"port"}
	colATMLocationType     = []string{"location_type"}
	colATMBrand            = []string{"atm_brand", "brand"}
	colATMDispenserType    = []string{"dispenser_type"}
	colATMType             = []string{"atm_type"}
	colATMSerialNumber     = []string{"serial_number"}
	colATMTagNumber        = []string{"tag_no", "tag_number"}
	colATMDeploymentStatus = []string{"deployment_status"}
	colATMPlacementType    = []string{"placement_type"}
	colATMServiceNumber    = []string{"service_number", "service_no"}
	colATMConnectionType   = []string{"connection_type"}
	colATMReserveAvail     = []string{"reserve_casset_availability", "reserve_cassette_availability"}
	colATMReserveQuantity  = []string{"reserve_casset_quantity", "reserve_cassette_quantity"}
)

// Supplementary network export ("ATMs - Off - WAN - IP").
var (
	colSiteName          = []string{"Site Name", "site_name", "site"}
	colSiteAccountNumber = []string{"Account Number", "account_number"}
	colSiteWANAddress    = []string{"WAN IP", "wan_ip", "wan_address"}
	colSiteLANAddress    = []string{"LAN Address (Router IP)", "lan_address", "lan ip", "lan_address_router_ip"}
	colSiteGateway       = []string{"LoopBack (Router-id)", "loopback", "router-id", "default_gateway"}
	colSiteATMIP         = []string{"ATM IP", "atm_ip", "atm ip"}
	colSiteSerial        = []string{"SN", "sn", "Serial Number", "serial_number"}
)
