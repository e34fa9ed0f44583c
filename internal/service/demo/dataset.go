package demo

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ukydev/fleet-live/internal/geo"
	"github.com/ukydev/fleet-live/internal/models"
)

const (
	fleetSize     = 12
	rideDays      = 7
	trailPoints   = 50
	alertCount    = 50
	historyPoints = 100
)

// Password is shared by every demo account.
const Password = "demo1234"

type location struct {
	geo.Point
	city string
}

// Demo locations around major cities.
var demoLocations = []location{
	{geo.Point{Lat: 40.7128, Lng: -74.006}, "New York"},
	{geo.Point{Lat: 40.7589, Lng: -73.9851}, "Midtown Manhattan"},
	{geo.Point{Lat: 40.6892, Lng: -74.0445}, "Brooklyn"},
	{geo.Point{Lat: 40.7282, Lng: -73.7949}, "Queens"},
	{geo.Point{Lat: 51.5074, Lng: -0.1278}, "London"},
	{geo.Point{Lat: 51.5155, Lng: -0.0922}, "Tower Bridge"},
	{geo.Point{Lat: 51.5033, Lng: -0.1195}, "Westminster"},
	{geo.Point{Lat: 48.8566, Lng: 2.3522}, "Paris"},
	{geo.Point{Lat: 48.8584, Lng: 2.2945}, "Eiffel Tower"},
	{geo.Point{Lat: 25.2048, Lng: 55.2708}, "Dubai"},
	{geo.Point{Lat: 25.1972, Lng: 55.2744}, "Downtown Dubai"},
	{geo.Point{Lat: 36.8065, Lng: 10.1815}, "Tunis"},
}

type vehicle struct {
	name, make, model, color, plate string
}

var fleetVehicles = []vehicle{
	{"Delivery Van 01", "Ford", "Transit", "White", "ABC-1234"},
	{"Truck Alpha", "Mercedes", "Actros", "Blue", "TRK-5678"},
	{"Fleet Car 03", "Toyota", "Camry", "Silver", "CAR-9012"},
	{"Service Van B2", "Volkswagen", "Crafter", "Yellow", "SRV-3456"},
	{"Executive 01", "BMW", "5 Series", "Black", "EXC-7890"},
	{"Cargo Truck 02", "Volvo", "FH16", "Red", "CGO-1122"},
	{"Courier Bike 01", "Honda", "PCX", "Green", "BKE-3344"},
	{"Ambulance 01", "Mercedes", "Sprinter", "White", "AMB-5566"},
	{"School Bus 01", "Blue Bird", "Vision", "Yellow", "SCH-7788"},
	{"Taxi Fleet 12", "Toyota", "Prius", "Yellow", "TAX-9900"},
	{"Construction 03", "Caterpillar", "740", "Yellow", "CON-1133"},
	{"Delivery Truck 05", "Isuzu", "NPR", "White", "DEL-2244"},
}

var personalVehicles = []vehicle{
	{"Family Car", "Honda", "CR-V", "Blue", "FAM-001"},
	{"My Motorcycle", "Yamaha", "MT-07", "Black", "BIKE-01"},
}

var driverNames = []string{
	"John Smith", "Maria Garcia", "Ahmed Hassan", "Li Wei", "Emma Johnson",
	"Carlos Rodriguez", "Sarah Williams", "Mohamed Ali", "James Brown", "Anna Schmidt",
	"David Lee", "Fatima Al-Rashid",
}

var (
	statuses       = []models.DeviceStatus{models.DeviceOnline, models.DeviceMoving, models.DeviceIdle, models.DeviceStopped, models.DeviceOffline}
	statusWeights  = []float64{0.2, 0.35, 0.2, 0.15, 0.1}
	epoch          = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	overspeedLimit = geo.KnotsFromKph(80)
)

// PersonalGroup holds the OWNER's vehicles.
const PersonalGroup = "grp-personal"

type alertTemplate struct {
	typ      models.AlertType
	severity models.AlertSeverity
	message  string
}

var alertTemplates = []alertTemplate{
	{models.AlertOverspeed, models.SeverityWarning, "Vehicle exceeded speed limit"},
	{models.AlertGeofenceExit, models.SeverityInfo, "Vehicle exited geofence"},
	{models.AlertGeofenceEnter, models.SeverityInfo, "Vehicle entered geofence"},
	{models.AlertLowBattery, models.SeverityWarning, "Device battery is low"},
	{models.AlertHarshBraking, models.SeverityWarning, "Harsh braking detected"},
	{models.AlertHarshAcceleration, models.SeverityWarning, "Harsh acceleration detected"},
	{models.AlertSOS, models.SeverityCritical, "SOS button pressed"},
	{models.AlertIdle, models.SeverityInfo, "Vehicle has been idle for extended period"},
	{models.AlertIgnitionOn, models.SeverityInfo, "Ignition turned on"},
	{models.AlertIgnitionOff, models.SeverityInfo, "Ignition turned off"},
}

// Account is a demo sign-in identity.
type Account struct {
	User models.User
}

// Dataset is the simulated fleet that stands in for the backend database.
// It is owned by a Backend, which guards it.
type Dataset struct {
	Groups    []models.Group
	Accounts  []Account
	Devices   []models.Device
	Rides     []models.Ride
	Geofences []models.Geofence
	Alerts    []models.Alert
}

type generator struct {
	rng   *rand.Rand
	now   time.Time
	newID func() string
}

// Generate builds a fresh dataset.
func Generate(rng *rand.Rand, now time.Time, newID func() string) *Dataset {
	g := &generator{rng: rng, now: now, newID: newID}
	ds := &Dataset{
		Groups:    seedGroups(),
		Accounts:  accounts(),
		Geofences: seedGeofences(),
	}
	ds.Devices = append(g.fleetDevices(ds.Groups), g.personalDevices()...)
	ds.Rides = g.rides(ds.Devices)
	ds.Alerts = g.alerts(ds.Devices)
	return ds
}

func seedGroups() []models.Group {
	return []models.Group{
		{ID: "grp-1", Name: "Delivery Fleet", Description: "All delivery vehicles", CreatedAt: epoch},
		{ID: "grp-2", Name: "Executive Cars", Description: "Company executive vehicles", CreatedAt: epoch},
		{ID: "grp-3", Name: "Trucks", Description: "Heavy cargo trucks", CreatedAt: epoch},
		{ID: "grp-4", Name: "Service Vehicles", Description: "Maintenance and service fleet", CreatedAt: epoch},
		{ID: "grp-5", Name: "Public Transport", Description: "Buses and taxis", CreatedAt: epoch},
		{ID: PersonalGroup, Name: "My Vehicles", Description: "Personal vehicles", CreatedAt: epoch},
	}
}

func accounts() []Account {
	user := func(id, email, first, last string, role models.Role, group, device string) Account {
		return Account{User: models.User{
			ID:               id,
			Email:            email,
			FirstName:        first,
			LastName:         last,
			Phone:            "+1234567890",
			Role:             role,
			GroupID:          group,
			AssignedDeviceID: device,
			CreatedAt:        epoch,
			UpdatedAt:        epoch,
		}}
	}
	return []Account{
		user("demo-admin", "admin@tracker.com", "Admin", "User", models.RoleAdmin, "", ""),
		user("demo-fleet-manager", "manager@tracker.com", "Fleet", "Manager", models.RoleFleetManager, "grp-1", ""),
		user("demo-driver", "driver@tracker.com", "John", "Driver", models.RoleDriver, "grp-1", "dev-1"),
		user("demo-owner", "owner@tracker.com", "Personal", "Owner", models.RoleOwner, PersonalGroup, ""),
	}
}

func seedGeofences() []models.Geofence {
	return []models.Geofence{
		{
			ID:          "geo-1",
			Name:        "Warehouse Zone",
			Description: "Main warehouse and loading area",
			Type:        models.GeofenceCircle,
			Area:        models.GeofenceArea{Center: &geo.Point{Lat: 40.7128, Lng: -74.006}, Radius: 500},
			Color:       "#3B82F6",
			IsActive:    true,
			CreatedAt:   epoch,
		},
		{
			ID:          "geo-2",
			Name:        "Downtown Restricted",
			Description: "No-go zone during peak hours",
			Type:        models.GeofencePolygon,
			Area: models.GeofenceArea{Coordinates: []geo.Point{
				{Lat: 40.758, Lng: -73.99},
				{Lat: 40.758, Lng: -73.98},
				{Lat: 40.752, Lng: -73.98},
				{Lat: 40.752, Lng: -73.99},
			}},
			Color:     "#EF4444",
			IsActive:  true,
			CreatedAt: epoch,
		},
		{
			ID:          "geo-3",
			Name:        "Airport Terminal",
			Description: "Airport pickup zone",
			Type:        models.GeofenceCircle,
			Area:        models.GeofenceArea{Center: &geo.Point{Lat: 40.6413, Lng: -73.7781}, Radius: 1000},
			Color:       "#10B981",
			IsActive:    true,
			CreatedAt:   epoch,
		},
		{
			ID:          "geo-4",
			Name:        "Office Complex",
			Description: "Corporate headquarters",
			Type:        models.GeofenceRectangle,
			Area: models.GeofenceArea{Coordinates: []geo.Point{
				{Lat: 40.7589, Lng: -73.9871},
				{Lat: 40.7589, Lng: -73.9831},
				{Lat: 40.7559, Lng: -73.9831},
				{Lat: 40.7559, Lng: -73.9871},
			}},
			Color:     "#8B5CF6",
			IsActive:  true,
			CreatedAt: epoch,
		},
	}
}

// near returns a point within maxOffset degrees of base on both axes.
func (g *generator) near(base geo.Point, maxOffset float64) geo.Point {
	return geo.Point{
		Lat: base.Lat + (g.rng.Float64()-0.5)*2*maxOffset,
		Lng: base.Lng + (g.rng.Float64()-0.5)*2*maxOffset,
	}
}

func (g *generator) status() models.DeviceStatus {
	r := g.rng.Float64()
	cumulative := 0.0
	for i, w := range statusWeights {
		cumulative += w
		if r <= cumulative {
			return statuses[i]
		}
	}
	return models.DeviceOnline
}

func (g *generator) fleetDevices(groups []models.Group) []models.Device {
	fleetGroups := make([]models.Group, 0, len(groups))
	for _, grp := range groups {
		if grp.ID != PersonalGroup {
			fleetGroups = append(fleetGroups, grp)
		}
	}

	devices := make([]models.Device, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		v := fleetVehicles[i%len(fleetVehicles)]
		base := demoLocations[i%len(demoLocations)]
		at := g.near(base.Point, 0.05)
		status := g.status()
		moving := status == models.DeviceMoving
		group := fleetGroups[i%len(fleetGroups)]
		id := fmt.Sprintf("dev-%d", i+1)
		imei := fmt.Sprintf("86606906100%d", 8445+i)

		var speed geo.Knots
		if moving {
			speed = geo.KnotsFromKph(30 + g.rng.Float64()*70)
		}

		pos := &models.Position{
			ID:         g.newID(),
			IMEI:       imei,
			DeviceID:   id,
			GroupID:    group.ID,
			ServerTime: g.now,
			DeviceTime: g.now.Add(-time.Duration(g.rng.Float64() * float64(5*time.Minute))),
			Valid:      true,
			Latitude:   at.Lat,
			Longitude:  at.Lng,
			Altitude:   50 + g.rng.Float64()*200,
			Speed:      speed,
			Course:     g.rng.Float64() * 360,
			Priority:   models.PriorityLow,
			Attributes: models.Attributes{
				models.AttrSatellites: 8 + g.rng.Intn(6),
				models.AttrIgnition:   status != models.DeviceOffline,
				models.AttrMotion:     moving,
				models.AttrBattery:    80 + g.rng.Float64()*20,
				models.AttrPower:      12 + g.rng.Float64()*2,
				models.AttrFuel:       20 + g.rng.Float64()*80,
				models.AttrOdometer:   10000 + g.rng.Float64()*90000,
			},
		}

		typ := models.DeviceVehicle
		if i >= 8 {
			typ = models.DeviceAsset
		}

		devices = append(devices, models.Device{
			ID:           id,
			IMEI:         imei,
			Name:         v.name,
			Type:         typ,
			Model:        "FMC920",
			Phone:        fmt.Sprintf("+1555%06d", i),
			GroupID:      group.ID,
			GroupName:    group.Name,
			Status:       status,
			LastPosition: pos,
			Attributes: models.Attributes{
				models.AttrLicensePlate: v.plate,
				models.AttrMake:         v.make,
				models.AttrModel:        v.model,
				models.AttrColor:        v.color,
				models.AttrDriverID:     fmt.Sprintf("drv-%d", i+1),
				models.AttrDriverName:   driverNames[i%len(driverNames)],
				models.AttrFuelCapacity: 60 + g.rng.Float64()*40,
			},
			CreatedAt: epoch,
			UpdatedAt: g.now,
		})
	}
	return devices
}

// personalDevices are the OWNER's two vehicles: a parked car and a moving
// motorcycle, both in New York.
func (g *generator) personalDevices() []models.Device {
	base := demoLocations[0]
	devices := make([]models.Device, 0, len(personalVehicles))
	for i, v := range personalVehicles {
		at := g.near(base.Point, 0.02)
		status := models.DeviceIdle
		typ := models.DeviceVehicle
		capacity := 50.0
		if i == 1 {
			status = models.DeviceMoving
			typ = models.DevicePersonal
			capacity = 15
		}
		moving := status == models.DeviceMoving
		id := fmt.Sprintf("dev-personal-%d", i+1)
		imei := fmt.Sprintf("86606906200%d", 1000+i)

		var speed geo.Knots
		if moving {
			speed = geo.KnotsFromKph(30 + g.rng.Float64()*40)
		}

		pos := &models.Position{
			ID:         g.newID(),
			IMEI:       imei,
			DeviceID:   id,
			GroupID:    PersonalGroup,
			ServerTime: g.now,
			DeviceTime: g.now.Add(-time.Duration(g.rng.Float64() * float64(5*time.Minute))),
			Valid:      true,
			Latitude:   at.Lat,
			Longitude:  at.Lng,
			Altitude:   50 + g.rng.Float64()*50,
			Speed:      speed,
			Course:     g.rng.Float64() * 360,
			Priority:   models.PriorityLow,
			Attributes: models.Attributes{
				models.AttrSatellites: 10 + g.rng.Intn(4),
				models.AttrIgnition:   true,
				models.AttrMotion:     moving,
				models.AttrBattery:    85 + g.rng.Float64()*15,
				models.AttrPower:      12 + g.rng.Float64()*2,
				models.AttrFuel:       50 + g.rng.Float64()*50,
				models.AttrOdometer:   5000 + g.rng.Float64()*30000,
			},
		}

		devices = append(devices, models.Device{
			ID:           id,
			IMEI:         imei,
			Name:         v.name,
			Type:         typ,
			Model:        "FMC130",
			Phone:        fmt.Sprintf("+1555%06d", 200000+i),
			GroupID:      PersonalGroup,
			GroupName:    "My Vehicles",
			Status:       status,
			LastPosition: pos,
			Attributes: models.Attributes{
				models.AttrLicensePlate: v.plate,
				models.AttrMake:         v.make,
				models.AttrModel:        v.model,
				models.AttrColor:        v.color,
				models.AttrFuelCapacity: capacity,
			},
			CreatedAt: epoch,
			UpdatedAt: g.now,
		})
	}
	return devices
}

// route interpolates n+1 noisy points from a to b spread over the ride.
func (g *generator) route(d models.Device, a, b geo.Point, start time.Time, dur time.Duration, n int) []models.Position {
	points := make([]models.Position, 0, n+1)
	for i := 0; i <= n; i++ {
		ratio := float64(i) / float64(n)
		at := start.Add(time.Duration(ratio * float64(dur)))
		points = append(points, models.Position{
			ID:         g.newID(),
			IMEI:       d.IMEI,
			DeviceID:   d.ID,
			GroupID:    d.GroupID,
			ServerTime: at,
			DeviceTime: at,
			Valid:      true,
			Latitude:   a.Lat + (b.Lat-a.Lat)*ratio + (g.rng.Float64()-0.5)*0.002,
			Longitude:  a.Lng + (b.Lng-a.Lng)*ratio + (g.rng.Float64()-0.5)*0.002,
			Altitude:   100,
			Speed:      geo.KnotsFromKph(30 + g.rng.Float64()*20),
			Course:     geo.Bearing(a, b),
			Priority:   models.PriorityLow,
			Attributes: models.Attributes{
				models.AttrIgnition: true,
				models.AttrBattery:  90,
			},
		})
	}
	return points
}

func (g *generator) station(p geo.Point) *models.Station {
	return &models.Station{
		Name:      fmt.Sprintf("Location %d", g.rng.Intn(100)),
		Latitude:  p.Lat,
		Longitude: p.Lng,
	}
}

// rides generates 2-4 trips per device per day for the last rideDays days,
// newest first. Trips not yet finished are still in progress.
func (g *generator) rides(devices []models.Device) []models.Ride {
	var rides []models.Ride
	for _, d := range devices {
		perDay := 2 + g.rng.Intn(3)
		for day := 0; day < rideDays; day++ {
			y, m, dd := g.now.AddDate(0, 0, -day).Date()
			for trip := 0; trip < perDay; trip++ {
				start := time.Date(y, m, dd, 6+trip*4+g.rng.Intn(2), g.rng.Intn(60), 0, 0, g.now.Location())
				dur := time.Duration((1800 + g.rng.Float64()*7200) * float64(time.Second))
				end := start.Add(dur)

				base := demoLocations[g.rng.Intn(len(demoLocations))]
				from := g.near(base.Point, 0.1)
				to := g.near(base.Point, 0.1)

				r := models.Ride{
					ID:           g.newID(),
					IMEI:         d.IMEI,
					DeviceID:     d.ID,
					DeviceName:   d.Name,
					GroupID:      d.GroupID,
					Distance:     5000 + g.rng.Float64()*50000,
					StartStation: g.station(from),
					StartTime:    start,
					Status:       models.RideInProgress,
					MaxSpeed:     geo.KnotsFromKph(80 + g.rng.Float64()*40),
					AvgSpeed:     geo.KnotsFromKph(30 + g.rng.Float64()*30),
					Locations:    g.route(d, from, to, start, dur, trailPoints),
				}
				if day > 0 || end.Before(g.now) {
					_ = r.End(end, g.station(to))
				}
				rides = append(rides, r)
			}
		}
	}
	sort.SliceStable(rides, func(i, j int) bool {
		return rides[i].StartTime.After(rides[j].StartTime)
	})
	return rides
}

// alerts generates alertCount alerts over the last week, newest first.
// About 70% are already read.
func (g *generator) alerts(devices []models.Device) []models.Alert {
	alerts := make([]models.Alert, 0, alertCount)
	week := float64(7 * 24 * time.Hour)
	for i := 0; i < alertCount; i++ {
		d := devices[g.rng.Intn(len(devices))]
		tpl := alertTemplates[g.rng.Intn(len(alertTemplates))]
		a := models.Alert{
			ID:         g.newID(),
			DeviceID:   d.ID,
			DeviceName: d.Name,
			Type:       tpl.typ,
			Severity:   tpl.severity,
			Message:    tpl.message,
			Position:   d.LastPosition,
			IsRead:     g.rng.Float64() > 0.3,
			CreatedAt:  g.now.Add(-time.Duration(g.rng.Float64() * week)),
		}
		if tpl.typ == models.AlertOverspeed {
			speed := geo.KnotsFromKph(90 + g.rng.Float64()*40)
			limit := overspeedLimit
			a.Speed = &speed
			a.SpeedLimit = &limit
		}
		alerts = append(alerts, a)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts
}

// PlaceholderRide fabricates a plausible finished trip for id. It backs
// the trip detail view when the backend cannot be reached.
func PlaceholderRide(id string, now time.Time) models.Ride {
	g := &generator{rng: rand.New(rand.NewSource(now.UnixNano())), now: now, newID: uuid.NewString}
	d := models.Device{ID: "demo-device", IMEI: "demo-imei", Name: "Demo Vehicle"}
	base := demoLocations[0].Point
	from := g.near(base, 0.05)
	to := g.near(base, 0.05)
	start := now.Add(-time.Hour)
	r := models.Ride{
		ID:           id,
		IMEI:         d.IMEI,
		DeviceID:     d.ID,
		DeviceName:   d.Name,
		StartStation: g.station(from),
		StartTime:    start,
		Status:       models.RideInProgress,
		MaxSpeed:     geo.KnotsFromKph(80),
		AvgSpeed:     geo.KnotsFromKph(40),
		Locations:    g.route(d, from, to, start, 45*time.Minute, trailPoints),
	}
	r.Distance = r.TrailDistance()
	_ = r.End(start.Add(45*time.Minute), g.station(to))
	return r
}
